package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"anchorid/internal/vp/models"
	"anchorid/pkg/platform/sentinel"
)

// Memory is an in-memory presentation store for tests and local development.
type Memory struct {
	mu   sync.RWMutex
	recs map[uuid.UUID]models.Record
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[uuid.UUID]models.Record)}
}

func (m *Memory) Create(_ context.Context, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recs[rec.ID]; exists {
		return fmt.Errorf("presentation %s: %w", rec.ID, sentinel.ErrConflict)
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return models.Record{}, fmt.Errorf("presentation %s: %w", id, sentinel.ErrNotFound)
	}
	return rec, nil
}

func (m *Memory) SetVerification(_ context.Context, id uuid.UUID, verified bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return fmt.Errorf("presentation %s: %w", id, sentinel.ErrNotFound)
	}
	rec.Verified = &verified
	rec.VerifiedAt = &at
	m.recs[id] = rec
	return nil
}
