package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	didmodels "anchorid/internal/did/models"
	didstore "anchorid/internal/did/store"
	"anchorid/internal/identity/keys"
	"anchorid/internal/journal"
	journalstore "anchorid/internal/journal/store"
	"anchorid/internal/ledger"
	"anchorid/internal/vc/models"
	"anchorid/internal/vc/store"
	dErrors "anchorid/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	creds    *store.Memory
	dids     *didstore.Memory
	ledger   *ledger.Simulator
	recorder *journal.Recorder
	service  *Service
	now      time.Time

	issuerDID  string
	subjectDID string
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.creds = store.NewMemory()
	s.dids = didstore.NewMemory()
	s.ledger = ledger.NewSimulator()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.recorder = journal.NewRecorder(journalstore.NewMemory(),
		journal.WithClock(func() time.Time { return s.now }))
	s.service = NewService(s.creds, s.dids, s.ledger, s.recorder,
		WithClock(func() time.Time { return s.now }))

	s.issuerDID = s.registerDID("issuer")
	s.subjectDID = s.registerDID("subject")
}

func (s *ServiceSuite) registerDID(tag string) string {
	pair, err := keys.GenerateKeyPair()
	s.Require().NoError(err)
	did, err := keys.NewDID("anchor", pair.PublicKeyHex)
	s.Require().NoError(err)
	rec := didmodels.Record{
		DID:        did,
		Document:   keys.BuildDocument(did, pair.PublicKeyHex, s.now),
		PrivateKey: pair.PrivateKeyHex,
		Status:     didmodels.StatusActive,
		CreatedAt:  s.now,
		UpdatedAt:  s.now,
	}
	s.Require().NoError(s.dids.Create(context.Background(), rec), tag)
	return did
}

func (s *ServiceSuite) issue(expires *time.Time) IssueResult {
	res, err := s.service.Issue(context.Background(), IssueRequest{
		IssuerDID:      s.issuerDID,
		SubjectDID:     s.subjectDID,
		CredentialType: "AgeVerificationCredential",
		Claims:         map[string]any{"age": 33},
		ExpirationDate: expires,
	})
	s.Require().NoError(err)
	return res
}

// =============================================================================
// Issue
// =============================================================================

func (s *ServiceSuite) TestIssue() {
	ctx := context.Background()

	s.Run("issues an anchored active credential", func() {
		res := s.issue(nil)
		s.NotEmpty(res.TxHash)
		s.Empty(res.Warning)

		rec, err := s.creds.FindByID(ctx, res.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)

		hash, err := rec.Payload.Hash()
		s.Require().NoError(err)
		status, err := s.ledger.GetVCStatus(ctx, s.issuerDID, hash)
		s.Require().NoError(err)
		s.Equal(ledger.StatusActive, status)
	})

	s.Run("unknown issuer is rejected", func() {
		_, err := s.service.Issue(ctx, IssueRequest{
			IssuerDID:      "did:anchor:unknown",
			SubjectDID:     s.subjectDID,
			CredentialType: "AgeVerificationCredential",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown subject is rejected", func() {
		_, err := s.service.Issue(ctx, IssueRequest{
			IssuerDID:      s.issuerDID,
			SubjectDID:     "did:anchor:unknown",
			CredentialType: "AgeVerificationCredential",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing type is rejected", func() {
		_, err := s.service.Issue(ctx, IssueRequest{
			IssuerDID:  s.issuerDID,
			SubjectDID: s.subjectDID,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestIssueLedgerFailure() {
	ctx := context.Background()
	s.ledger.Fail(errors.New("gateway unreachable"))

	res := s.issue(nil)
	s.Empty(res.TxHash)
	s.Contains(res.Warning, "ledger registration failed")

	// Unlike DIDs, the credential stays active: local state is authoritative
	// until verification consults the ledger.
	rec, err := s.creds.FindByID(ctx, res.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, rec.Status)

	attempt, err := s.recorder.Latest(ctx, res.ID.String(), journal.TypeCreateVC)
	s.Require().NoError(err)
	s.Equal(journal.StatusFailed, attempt.Status)
}

// =============================================================================
// Revoke
// =============================================================================

func (s *ServiceSuite) TestRevoke() {
	ctx := context.Background()

	s.Run("revokes on the ledger and locally", func() {
		issued := s.issue(nil)

		res, err := s.service.Revoke(ctx, issued.ID)
		s.Require().NoError(err)
		s.NotEmpty(res.TxHash)
		s.Empty(res.Warning)

		rec, err := s.creds.FindByID(ctx, issued.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, rec.Status)

		hash, err := rec.Payload.Hash()
		s.Require().NoError(err)
		status, err := s.ledger.GetVCStatus(ctx, s.issuerDID, hash)
		s.Require().NoError(err)
		s.Equal(ledger.StatusRevoked, status)
	})

	s.Run("already revoked is invalid state", func() {
		issued := s.issue(nil)
		_, err := s.service.Revoke(ctx, issued.ID)
		s.Require().NoError(err)

		_, err = s.service.Revoke(ctx, issued.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown credential is not found", func() {
		_, err := s.service.Revoke(ctx, uuid.New())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("ledger failure still revokes locally", func() {
		issued := s.issue(nil)

		s.ledger.Fail(errors.New("gateway unreachable"))
		defer s.ledger.Fail(nil)

		res, err := s.service.Revoke(ctx, issued.ID)
		s.Require().NoError(err)
		s.Contains(res.Warning, "ledger revocation failed")

		rec, err := s.creds.FindByID(ctx, issued.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, rec.Status)
	})
}

// =============================================================================
// Verify
// =============================================================================

func (s *ServiceSuite) TestVerify() {
	ctx := context.Background()

	s.Run("active anchored credential is valid", func() {
		issued := s.issue(nil)
		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.True(res.Valid)
		s.Empty(res.Reason)
	})

	s.Run("revoked credential is invalid", func() {
		issued := s.issue(nil)
		_, err := s.service.Revoke(ctx, issued.ID)
		s.Require().NoError(err)

		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.False(res.Valid)
		s.Contains(res.Reason, "revoked")
	})

	s.Run("unanchored credential is invalid", func() {
		s.ledger.Fail(errors.New("gateway unreachable"))
		issued := s.issue(nil)
		s.ledger.Fail(nil)

		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.False(res.Valid)
		s.Contains(res.Reason, "not anchored")
	})

	s.Run("ledger outage surfaces as ledger failure", func() {
		issued := s.issue(nil)
		s.ledger.Fail(errors.New("gateway unreachable"))
		defer s.ledger.Fail(nil)

		_, err := s.service.Verify(ctx, issued.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeLedgerFailure))
	})

	s.Run("unknown credential is not found", func() {
		_, err := s.service.Verify(ctx, uuid.New())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestVerifyExpiration() {
	ctx := context.Background()
	expires := s.now.Add(time.Hour)
	issued := s.issue(&expires)

	s.Run("valid before expiration", func() {
		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.True(res.Valid)
	})

	s.Run("sweeps to expired after the deadline", func() {
		s.now = s.now.Add(2 * time.Hour)

		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.False(res.Valid)
		s.Contains(res.Reason, "expired")

		rec, err := s.creds.FindByID(ctx, issued.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, rec.Status)
	})

	s.Run("repeated verification stays expired without error", func() {
		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.False(res.Valid)
		s.Contains(res.Reason, "expired")

		rec, err := s.creds.FindByID(ctx, issued.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, rec.Status)
	})
}

func (s *ServiceSuite) TestVerifyReconciliation() {
	ctx := context.Background()
	issued := s.issue(nil)

	// The ledger saw a revocation this service never issued.
	rec, err := s.creds.FindByID(ctx, issued.ID)
	s.Require().NoError(err)
	hash, err := rec.Payload.Hash()
	s.Require().NoError(err)
	s.ledger.SetVCStatus(s.issuerDID, hash, ledger.StatusRevoked)

	s.Run("local status converges to the ledger", func() {
		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.False(res.Valid)
		s.Contains(res.Reason, "revoked")

		rec, err := s.creds.FindByID(ctx, issued.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, rec.Status)
	})

	s.Run("converged state is stable under repeated verification", func() {
		res, err := s.service.Verify(ctx, issued.ID)
		s.Require().NoError(err)
		s.False(res.Valid)

		rec, err := s.creds.FindByID(ctx, issued.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, rec.Status)
	})
}
