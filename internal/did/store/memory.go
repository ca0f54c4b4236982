package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anchorid/internal/did/models"
	"anchorid/pkg/platform/sentinel"
)

// Memory is an in-memory DID store for tests and local development.
type Memory struct {
	mu   sync.RWMutex
	dids map[string]models.Record
}

func NewMemory() *Memory {
	return &Memory{dids: make(map[string]models.Record)}
}

func (m *Memory) Create(_ context.Context, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.dids[rec.DID]; exists {
		return fmt.Errorf("did %s: %w", rec.DID, sentinel.ErrConflict)
	}
	m.dids[rec.DID] = rec
	return nil
}

func (m *Memory) FindByDID(_ context.Context, did string) (models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.dids[did]
	if !ok {
		return models.Record{}, fmt.Errorf("did %s: %w", did, sentinel.ErrNotFound)
	}
	return rec, nil
}

func (m *Memory) UpdateStatus(_ context.Context, did string, from, to models.Status, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.dids[did]
	if !ok || rec.Status != from {
		return fmt.Errorf("did %s not in status %s: %w", did, from, sentinel.ErrInvalidState)
	}
	rec.Status = to
	rec.UpdatedAt = now
	m.dids[did] = rec
	return nil
}

// Len reports the number of stored records. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dids)
}
