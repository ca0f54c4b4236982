//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"anchorid/internal/did/models"
	"anchorid/internal/did/store"
	"anchorid/internal/identity/keys"
	"anchorid/pkg/platform/sentinel"
	"anchorid/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"blockchain_transactions", "vc_blockchain_transactions",
		"verifiable_presentations", "verifiable_credentials", "dids", "users")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRecord() models.Record {
	pair, err := keys.GenerateKeyPair()
	s.Require().NoError(err)
	did, err := keys.NewDID("anchor", pair.PublicKeyHex)
	s.Require().NoError(err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.Record{
		DID:        did,
		Document:   keys.BuildDocument(did, pair.PublicKeyHex, now),
		PrivateKey: pair.PrivateKeyHex,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	rec := s.newRecord()

	s.Require().NoError(s.store.Create(ctx, rec))

	got, err := s.store.FindByDID(ctx, rec.DID)
	s.Require().NoError(err)
	s.Equal(rec.DID, got.DID)
	s.Equal(rec.Document, got.Document)
	s.Equal(rec.PrivateKey, got.PrivateKey)
	s.Equal(models.StatusActive, got.Status)
	s.Nil(got.UserID)
}

func (s *PostgresStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()
	rec := s.newRecord()

	s.Require().NoError(s.store.Create(ctx, rec))
	err := s.store.Create(ctx, rec)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByDID(context.Background(), "did:anchor:missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateStatusGuard() {
	ctx := context.Background()
	rec := s.newRecord()
	s.Require().NoError(s.store.Create(ctx, rec))

	now := time.Now().UTC()
	s.Require().NoError(s.store.UpdateStatus(ctx, rec.DID, models.StatusActive, models.StatusRevoked, now))

	err := s.store.UpdateStatus(ctx, rec.DID, models.StatusActive, models.StatusSuspended, now)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByDID(ctx, rec.DID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, got.Status)
}

// TestConcurrentRevocation verifies that concurrent guarded updates let
// exactly one transition through.
func (s *PostgresStoreSuite) TestConcurrentRevocation() {
	ctx := context.Background()
	rec := s.newRecord()
	s.Require().NoError(s.store.Create(ctx, rec))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, invalidCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.UpdateStatus(ctx, rec.DID, models.StatusActive, models.StatusRevoked, time.Now().UTC())
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrInvalidState) {
				invalidCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one revocation should win")
	s.Equal(int32(goroutines-1), invalidCount.Load())
}
