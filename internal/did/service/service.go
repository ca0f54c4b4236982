// Package service implements the DID lifecycle manager: creation, resolution
// and revocation with cascading credential revocation.
//
// Every operation commits locally first; ledger anchoring is a second,
// best-effort phase whose failure degrades to a warning and a failed journal
// record, never a rollback.
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

	didmetrics "anchorid/internal/did/metrics"
	"anchorid/internal/did/models"
	"anchorid/internal/identity/keys"
	"anchorid/internal/journal"
	"anchorid/internal/ledger"
	"anchorid/internal/platform/logger"
	"anchorid/internal/user"
	dErrors "anchorid/pkg/domain-errors"
	"anchorid/pkg/platform/sentinel"
)

// Store persists DID records.
type Store interface {
	Create(ctx context.Context, rec models.Record) error
	FindByDID(ctx context.Context, did string) (models.Record, error)
	UpdateStatus(ctx context.Context, did string, from, to models.Status, now time.Time) error
}

// CredentialUpdater is the slice of the credential store the revocation
// cascade needs: listing active credentials about a subject and revoking
// them one at a time so failures stay isolated.
type CredentialUpdater interface {
	ListActiveBySubject(ctx context.Context, subjectDid string) ([]uuid.UUID, error)
	Revoke(ctx context.Context, id uuid.UUID, now time.Time) error
}

// UserStore checks owner existence for owned DIDs.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

// StoreTx wraps local writes of one operation in a single transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ResolutionCache serves warm resolutions. Implementations must treat their
// own failures as misses.
type ResolutionCache interface {
	Get(ctx context.Context, did string) (models.Resolution, bool)
	Set(ctx context.Context, did string, res models.Resolution)
	Invalidate(ctx context.Context, did string)
}

// Service is the DID lifecycle manager.
type Service struct {
	dids    Store
	creds   CredentialUpdater
	users   UserStore
	ledger  ledger.Client
	journal *journal.Recorder
	tx      StoreTx
	cache   ResolutionCache
	method  string
	log     *slog.Logger
	metrics *didmetrics.Metrics
	clock   func() time.Time
	tracer  trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithUserStore enables owner-existence checks for owned DIDs.
func WithUserStore(users UserStore) Option {
	return func(s *Service) { s.users = users }
}

// WithTx sets the transaction runner for local writes.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithCache enables the resolution cache.
func WithCache(cache ResolutionCache) Option {
	return func(s *Service) { s.cache = cache }
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
func WithMetrics(m *didmetrics.Metrics) Option {
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

// WithMethod sets the DID method segment for minted identifiers.
func WithMethod(method string) Option {
	return func(s *Service) {
		if method != "" {
			s.method = method
		}
	}
}

// NewService builds a DID lifecycle manager. creds drives the revocation
// cascade; ledgerClient and recorder form the anchoring phase.
func NewService(dids Store, creds CredentialUpdater, ledgerClient ledger.Client, recorder *journal.Recorder, opts ...Option) *Service {
	s := &Service{
		dids:    dids,
		creds:   creds,
		ledger:  ledgerClient,
		journal: recorder,
		tx:      passthroughTx{},
		method:  "anchor",
		log:     logger.Discard(),
		clock:   time.Now,
		tracer:  otel.Tracer("anchorid/did"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// passthroughTx runs the function without a surrounding transaction. Memory
// stores are atomic per call, which is all the tests need.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// CreateRequest describes a DID creation. A nil OwnerUserID mints an unowned
// (issuer-class) DID.
type CreateRequest struct {
	OwnerUserID *uuid.UUID
}

// CreateResult is returned once the DID is locally committed. TxHash is set
// only when anchoring succeeded; Warning carries the anchoring error
// otherwise, in which case the record has already been marked error.
type CreateResult struct {
	DID           string
	Document      keys.Document
	PrivateKeyHex string
	TxHash        string
	Warning       string
}

// Create mints a key pair and DID document, commits the record active, then
// anchors the document hash on the ledger. Local durability never depends on
// ledger availability; an anchoring failure marks the DID error and is
// surfaced as a warning.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "did.Create")
	defer span.End()

	if req.OwnerUserID != nil {
		if s.users == nil {
			return CreateResult{}, dErrors.New(dErrors.CodeInternal, "user store not configured")
		}
		if _, err := s.users.FindByID(ctx, *req.OwnerUserID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return CreateResult{}, dErrors.Newf(dErrors.CodeNotFound, "owner user %s not found", req.OwnerUserID)
			}
			return CreateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "owner lookup failed")
		}
	}

	pair, err := keys.GenerateKeyPair()
	if err != nil {
		return CreateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "key generation failed")
	}
	did, err := keys.NewDID(s.method, pair.PublicKeyHex)
	if err != nil {
		return CreateResult{}, err
	}
	span.SetAttributes(attribute.String("did", did))

	now := s.clock()
	doc := keys.BuildDocument(did, pair.PublicKeyHex, now)
	rec := models.Record{
		DID:        did,
		Document:   doc,
		PrivateKey: pair.PrivateKeyHex,
		UserID:     req.OwnerUserID,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Phase one: local commit. The DID exists from here on regardless of
	// what the ledger does.
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.dids.Create(ctx, rec); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "did already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist did")
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	if s.metrics != nil {
		s.metrics.DIDsCreated.Inc()
	}

	result := CreateResult{
		DID:           did,
		Document:      doc,
		PrivateKeyHex: pair.PrivateKeyHex,
	}

	// Phase two: best-effort anchoring.
	docHash, err := keys.DocumentHash(doc)
	if err != nil {
		return CreateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash did document")
	}
	txHash, ledgerErr := s.journal.Record(ctx, did, journal.TypeCreateDID, func(ctx context.Context) (string, error) {
		return s.ledger.CreateDID(ctx, did, docHash)
	})
	if ledgerErr != nil {
		// A DID whose anchoring failed is unusable as an identity anchor:
		// mark it error. The failed creation attempt stays on record.
		if updateErr := s.dids.UpdateStatus(ctx, did, models.StatusActive, models.StatusError, s.clock()); updateErr != nil {
			s.log.Error("mark did error failed", "did", did, "error", updateErr)
		}
		if s.cache != nil {
			s.cache.Invalidate(ctx, did)
		}
		if s.metrics != nil {
			s.metrics.AnchorFailures.Inc()
		}
		s.log.Warn("did anchoring failed", "did", did, "error", ledgerErr)
		result.Warning = "ledger anchoring failed: " + ledgerErr.Error()
		return result, nil
	}

	result.TxHash = txHash
	return result, nil
}

// Resolve reads the DID record and its most recent anchoring attempt. It
// never calls the ledger synchronously; the journal carries the anchoring
// view.
func (s *Service) Resolve(ctx context.Context, did string) (models.Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "did.Resolve", trace.WithAttributes(attribute.String("did", did)))
	defer span.End()

	if s.cache != nil {
		if res, ok := s.cache.Get(ctx, did); ok {
			return res, nil
		}
	}

	rec, err := s.dids.FindByDID(ctx, did)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Resolution{}, dErrors.Newf(dErrors.CodeNotFound, "did %s not found", did)
		}
		return models.Resolution{}, dErrors.Wrap(err, dErrors.CodeInternal, "load did")
	}

	res := models.Resolution{
		DID:      rec.DID,
		Document: rec.Document,
		Status:   rec.Status,
	}
	if attempt, err := s.journal.Latest(ctx, did, journal.TypeCreateDID); err == nil {
		res.AnchorTxHash = attempt.TxHash
		res.LedgerError = attempt.ErrorMessage
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		s.log.Warn("journal lookup failed during resolve", "did", did, "error", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, did, res)
	}
	return res, nil
}

// RevokeResult reports a completed revocation. Local revocation succeeded
// whenever Revoke returns nil error; Warning describes ledger or cascade
// partial failures.
type RevokeResult struct {
	DID             string
	CascadedRevoked int
	CascadeFailed   int
	TxHash          string
	Warning         string
}

// Revoke transitions an active DID to revoked, cascades to active
// credentials about this subject, then records the revocation on the ledger.
// Only "not found" and "already revoked" are fatal; cascade and ledger
// failures degrade to warnings because the local revocation has already
// committed.
func (s *Service) Revoke(ctx context.Context, did string) (RevokeResult, error) {
	ctx, span := s.tracer.Start(ctx, "did.Revoke", trace.WithAttributes(attribute.String("did", did)))
	defer span.End()

	rec, err := s.dids.FindByDID(ctx, did)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RevokeResult{}, dErrors.Newf(dErrors.CodeNotFound, "did %s not found", did)
		}
		return RevokeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load did")
	}
	if rec.Status == models.StatusRevoked {
		return RevokeResult{}, dErrors.Newf(dErrors.CodeInvalidState, "did %s is already revoked", did)
	}
	if !rec.Status.CanTransition(models.StatusRevoked) {
		return RevokeResult{}, dErrors.Newf(dErrors.CodeInvalidState, "did %s in status %s cannot be revoked", did, rec.Status)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.dids.UpdateStatus(ctx, did, rec.Status, models.StatusRevoked, s.clock()); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.Newf(dErrors.CodeInvalidState, "did %s is already revoked", did)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "revoke did")
		}
		return nil
	})
	if err != nil {
		return RevokeResult{}, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, did)
	}
	if s.metrics != nil {
		s.metrics.DIDsRevoked.Inc()
	}

	result := RevokeResult{DID: did}
	var warnings []string

	// Cascade to credentials naming this DID as subject. Each credential is
	// revoked in its own write so one failure cannot block the rest.
	// Credentials issued by this DID are left untouched; see DESIGN.md.
	if cascadeWarning := s.cascade(ctx, did, &result); cascadeWarning != "" {
		warnings = append(warnings, cascadeWarning)
	}

	txHash, ledgerErr := s.journal.Record(ctx, did, journal.TypeRevokeDID, func(ctx context.Context) (string, error) {
		return s.ledger.UpdateDID(ctx, did, string(models.StatusRevoked))
	})
	if ledgerErr != nil {
		if s.metrics != nil {
			s.metrics.AnchorFailures.Inc()
		}
		s.log.Warn("did revocation anchoring failed", "did", did, "error", ledgerErr)
		warnings = append(warnings, "ledger update failed: "+ledgerErr.Error())
	} else {
		result.TxHash = txHash
	}

	result.Warning = joinWarnings(warnings)
	return result, nil
}

func (s *Service) cascade(ctx context.Context, did string, result *RevokeResult) string {
	ids, err := s.creds.ListActiveBySubject(ctx, did)
	if err != nil {
		s.log.Warn("cascade listing failed", "did", did, "error", err)
		return "cascade listing failed: " + err.Error()
	}

	now := s.clock()
	var firstErr error
	for _, id := range ids {
		if err := s.creds.Revoke(ctx, id, now); err != nil {
			result.CascadeFailed++
			if firstErr == nil {
				firstErr = err
			}
			s.log.Warn("cascaded credential revocation failed",
				"did", did, "credential_id", id, "error", err)
			continue
		}
		result.CascadedRevoked++
	}

	if s.metrics != nil {
		s.metrics.CascadedRevocations.Add(float64(result.CascadedRevoked))
		s.metrics.CascadeFailures.Add(float64(result.CascadeFailed))
	}
	if firstErr != nil {
		return "cascade incomplete: " + firstErr.Error()
	}
	return ""
}

func joinWarnings(warnings []string) string {
	switch len(warnings) {
	case 0:
		return ""
	case 1:
		return warnings[0]
	default:
		out := warnings[0]
		for _, w := range warnings[1:] {
			out += "; " + w
		}
		return out
	}
}
