// Package service implements the credential lifecycle manager: issuance,
// revocation, and verification against both local state and the ledger.
//
// Unlike DIDs, a credential is never marked error when anchoring fails:
// credentials are high-volume and stay usable; only the journal records the
// failed attempt.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	didmodels "anchorid/internal/did/models"
	"anchorid/internal/journal"
	"anchorid/internal/ledger"
	"anchorid/internal/platform/logger"
	vcmetrics "anchorid/internal/vc/metrics"
	"anchorid/internal/vc/models"
	dErrors "anchorid/pkg/domain-errors"
	"anchorid/pkg/platform/sentinel"
)

// Store persists credential records.
type Store interface {
	Create(ctx context.Context, rec models.Record) error
	FindByID(ctx context.Context, id uuid.UUID) (models.Record, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.Status, now time.Time) error
}

// DIDStore resolves issuer and subject DIDs at issuance time.
type DIDStore interface {
	FindByDID(ctx context.Context, did string) (didmodels.Record, error)
}

// StoreTx wraps local writes of one operation in a single transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the credential lifecycle manager.
type Service struct {
	creds   Store
	dids    DIDStore
	ledger  ledger.Client
	journal *journal.Recorder
	tx      StoreTx
	log     *slog.Logger
	metrics *vcmetrics.Metrics
	clock   func() time.Time
	tracer  trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithTx sets the transaction runner for local writes.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics enables lifecycle metrics.
func WithMetrics(m *vcmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewService builds a credential lifecycle manager.
func NewService(creds Store, dids DIDStore, ledgerClient ledger.Client, recorder *journal.Recorder, opts ...Option) *Service {
	s := &Service{
		creds:   creds,
		dids:    dids,
		ledger:  ledgerClient,
		journal: recorder,
		tx:      passthroughTx{},
		log:     logger.Discard(),
		clock:   time.Now,
		tracer:  otel.Tracer("anchorid/vc"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest describes a credential issuance.
type IssueRequest struct {
	IssuerDID      string
	SubjectDID     string
	CredentialType string
	Claims         map[string]any
	ExpirationDate *time.Time
}

// IssueResult is returned once the credential is locally committed. Warning
// carries a failed anchoring error; the credential stays active either way.
type IssueResult struct {
	ID      uuid.UUID
	Payload models.Payload
	TxHash  string
	Warning string
}

// Issue validates both DIDs, commits the credential active, then registers
// its content hash on the ledger best-effort.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (IssueResult, error) {
	ctx, span := s.tracer.Start(ctx, "vc.Issue",
		trace.WithAttributes(attribute.String("issuer", req.IssuerDID), attribute.String("subject", req.SubjectDID)))
	defer span.End()

	if req.IssuerDID == "" || req.SubjectDID == "" {
		return IssueResult{}, dErrors.New(dErrors.CodeValidation, "issuer and subject DIDs are required")
	}
	if req.CredentialType == "" {
		return IssueResult{}, dErrors.New(dErrors.CodeValidation, "credential type is required")
	}
	if _, err := s.dids.FindByDID(ctx, req.IssuerDID); err != nil {
		return IssueResult{}, didLookupErr(err, req.IssuerDID, "issuer")
	}
	if _, err := s.dids.FindByDID(ctx, req.SubjectDID); err != nil {
		return IssueResult{}, didLookupErr(err, req.SubjectDID, "subject")
	}

	now := s.clock()
	id := uuid.New()
	payload := models.NewPayload(id, req.IssuerDID, req.SubjectDID, req.CredentialType,
		req.Claims, now, req.ExpirationDate)
	rec := models.Record{
		ID:             id,
		IssuerDID:      req.IssuerDID,
		SubjectDID:     req.SubjectDID,
		CredentialType: req.CredentialType,
		Payload:        payload,
		IssuanceDate:   now,
		ExpirationDate: req.ExpirationDate,
		Status:         models.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Phase one: local commit.
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.creds.Create(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist credential")
		}
		return nil
	})
	if err != nil {
		return IssueResult{}, err
	}
	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
	}

	result := IssueResult{ID: id, Payload: payload}

	// Phase two: best-effort anchoring. The credential keeps its active
	// status on failure; the journal carries the failed attempt.
	hash, err := payload.Hash()
	if err != nil {
		return IssueResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash credential payload")
	}
	txHash, ledgerErr := s.journal.Record(ctx, id.String(), journal.TypeCreateVC, func(ctx context.Context) (string, error) {
		return s.ledger.RegisterVC(ctx, req.IssuerDID, req.SubjectDID, hash)
	})
	if ledgerErr != nil {
		if s.metrics != nil {
			s.metrics.AnchorFailures.Inc()
		}
		s.log.Warn("credential anchoring failed", "credential_id", id, "error", ledgerErr)
		result.Warning = "ledger registration failed: " + ledgerErr.Error()
		return result, nil
	}

	result.TxHash = txHash
	return result, nil
}

// RevokeResult reports a completed credential revocation.
type RevokeResult struct {
	ID      uuid.UUID
	TxHash  string
	Warning string
}

// Revoke submits the ledger revoke call and then, regardless of the ledger
// outcome, moves the local record to revoked. Already-terminal credentials
// are rejected, not silently accepted.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) (RevokeResult, error) {
	ctx, span := s.tracer.Start(ctx, "vc.Revoke",
		trace.WithAttributes(attribute.String("credential_id", id.String())))
	defer span.End()

	rec, err := s.creds.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RevokeResult{}, dErrors.Newf(dErrors.CodeNotFound, "credential %s not found", id)
		}
		return RevokeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}
	if rec.Status == models.StatusRevoked {
		return RevokeResult{}, dErrors.Newf(dErrors.CodeInvalidState, "credential %s is already revoked", id)
	}
	if !rec.Status.CanTransition(models.StatusRevoked) {
		return RevokeResult{}, dErrors.Newf(dErrors.CodeInvalidState, "credential %s in status %s cannot be revoked", id, rec.Status)
	}

	hash, err := rec.Payload.Hash()
	if err != nil {
		return RevokeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash credential payload")
	}

	result := RevokeResult{ID: id}
	txHash, ledgerErr := s.journal.Record(ctx, id.String(), journal.TypeRevokeVC, func(ctx context.Context) (string, error) {
		return s.ledger.RevokeVC(ctx, rec.IssuerDID, hash)
	})
	if ledgerErr != nil {
		if s.metrics != nil {
			s.metrics.AnchorFailures.Inc()
		}
		s.log.Warn("credential revocation anchoring failed", "credential_id", id, "error", ledgerErr)
		result.Warning = "ledger revocation failed: " + ledgerErr.Error()
	} else {
		result.TxHash = txHash
	}

	// Local revocation happens regardless of the ledger outcome.
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.creds.UpdateStatus(ctx, id, rec.Status, models.StatusRevoked, s.clock()); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.Newf(dErrors.CodeInvalidState, "credential %s is already revoked", id)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "revoke credential")
		}
		return nil
	})
	if err != nil {
		return RevokeResult{}, err
	}
	if s.metrics != nil {
		s.metrics.CredentialsRevoked.Inc()
	}
	return result, nil
}

// VerifyResult reports credential validity with a human-readable reason when
// invalid.
type VerifyResult struct {
	Valid  bool
	Reason string
}

func invalid(reason string) VerifyResult {
	return VerifyResult{Valid: false, Reason: reason}
}

// Verify runs the staged validity check, cheapest first:
//
//  1. local status must be active;
//  2. a passed expiration date sweeps the credential to expired;
//  3. the ledger must report the credential active — unregistered fails,
//     revoked-on-ledger reconciles the local record to revoked and fails.
//
// The ledger round-trip is last because it is by far the slowest step.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "vc.Verify",
		trace.WithAttributes(attribute.String("credential_id", id.String())))
	defer span.End()

	rec, err := s.creds.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return VerifyResult{}, dErrors.Newf(dErrors.CodeNotFound, "credential %s not found", id)
		}
		return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}

	if rec.Status != models.StatusActive {
		return invalid("credential status is " + string(rec.Status)), nil
	}

	now := s.clock()
	if rec.ExpirationDate != nil && now.After(*rec.ExpirationDate) {
		// Sweep to expired. The guard on the current status makes the
		// transition happen exactly once under repeated or concurrent
		// verification.
		if err := s.creds.UpdateStatus(ctx, id, models.StatusActive, models.StatusExpired, now); err != nil {
			if !errors.Is(err, sentinel.ErrInvalidState) {
				return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "expire credential")
			}
		} else if s.metrics != nil {
			s.metrics.CredentialsExpired.Inc()
		}
		return invalid("credential has expired"), nil
	}

	hash, err := rec.Payload.Hash()
	if err != nil {
		return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash credential payload")
	}
	status, err := s.ledger.GetVCStatus(ctx, rec.IssuerDID, hash)
	if err != nil {
		return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeLedgerFailure, "ledger status query failed")
	}

	switch status {
	case ledger.StatusUnregistered:
		return invalid("credential is not anchored on the ledger"), nil
	case ledger.StatusRevoked:
		// The ledger saw an out-of-band revocation; it is authoritative for
		// this conflict. Converge the local record.
		if err := s.creds.UpdateStatus(ctx, id, models.StatusActive, models.StatusRevoked, now); err != nil {
			if !errors.Is(err, sentinel.ErrInvalidState) {
				return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "reconcile credential status")
			}
		} else {
			if s.metrics != nil {
				s.metrics.Reconciliations.Inc()
			}
			s.log.Info("credential reconciled to ledger revocation", "credential_id", id)
		}
		return invalid("credential has been revoked"), nil
	}

	return VerifyResult{Valid: true}, nil
}

func didLookupErr(err error, did, role string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s did %s not found", role, did)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "load "+role+" did")
}
