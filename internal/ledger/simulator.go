package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	"anchorid/pkg/platform/sentinel"
)

// Simulator is an in-memory ledger used in development and tests. Transaction
// hashes are deterministic per submission so assertions stay stable.
type Simulator struct {
	mu    sync.Mutex
	dids  map[string]DIDEntry
	vcs   map[string]VCStatus
	nonce int
	fail  error
}

func NewSimulator() *Simulator {
	return &Simulator{
		dids: make(map[string]DIDEntry),
		vcs:  make(map[string]VCStatus),
	}
}

// Fail makes every subsequent call return err. Pass nil to restore normal
// behavior.
func (s *Simulator) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Simulator) CreateDID(ctx context.Context, id, documentHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if _, exists := s.dids[id]; exists {
		return "", fmt.Errorf("did %s already anchored", id)
	}
	s.dids[id] = DIDEntry{Hash: documentHash, Owner: id}
	return s.txHash(id), nil
}

func (s *Simulator) UpdateDID(ctx context.Context, id, statusTag string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	entry, exists := s.dids[id]
	if !exists {
		return "", fmt.Errorf("did %s: %w", id, sentinel.ErrNotFound)
	}
	entry.Hash = statusTag
	s.dids[id] = entry
	return s.txHash(id), nil
}

func (s *Simulator) RegisterVC(ctx context.Context, issuerDid, subjectDid, hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.vcs[vcKey(issuerDid, hash)] = StatusActive
	return s.txHash(hash), nil
}

func (s *Simulator) RevokeVC(ctx context.Context, issuerDid, hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.vcs[vcKey(issuerDid, hash)] = StatusRevoked
	return s.txHash(hash), nil
}

func (s *Simulator) GetVCStatus(ctx context.Context, issuerDid, hash string) (VCStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return StatusUnregistered, err
	}
	return s.vcs[vcKey(issuerDid, hash)], nil
}

func (s *Simulator) GetDID(ctx context.Context, id string) (DIDEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return DIDEntry{}, err
	}
	entry, exists := s.dids[id]
	if !exists {
		return DIDEntry{}, fmt.Errorf("did %s: %w", id, sentinel.ErrNotFound)
	}
	return entry, nil
}

// SetVCStatus overrides the ledger view of a credential. Tests use it to
// simulate out-of-band revocation paths.
func (s *Simulator) SetVCStatus(issuerDid, hash string, status VCStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vcs[vcKey(issuerDid, hash)] = status
}

func (s *Simulator) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail
}

func (s *Simulator) txHash(key string) string {
	s.nonce++
	sum := sha3.Sum256(fmt.Appendf(nil, "%s|%d", key, s.nonce))
	return "0x" + hex.EncodeToString(sum[:])
}

func vcKey(issuerDid, hash string) string {
	return issuerDid + "|" + hash
}
