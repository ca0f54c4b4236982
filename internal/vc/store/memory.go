package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"anchorid/internal/vc/models"
	"anchorid/pkg/platform/sentinel"
)

// Memory is an in-memory credential store for tests and local development.
type Memory struct {
	mu    sync.RWMutex
	creds map[uuid.UUID]models.Record
}

func NewMemory() *Memory {
	return &Memory{creds: make(map[uuid.UUID]models.Record)}
}

func (m *Memory) Create(_ context.Context, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.creds[rec.ID]; exists {
		return fmt.Errorf("credential %s: %w", rec.ID, sentinel.ErrConflict)
	}
	m.creds[rec.ID] = rec
	return nil
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.creds[id]
	if !ok {
		return models.Record{}, fmt.Errorf("credential %s: %w", id, sentinel.ErrNotFound)
	}
	return rec, nil
}

func (m *Memory) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := m.creds[id]
		if !ok {
			return nil, fmt.Errorf("credential %s: %w", id, sentinel.ErrNotFound)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) ListActiveBySubject(_ context.Context, subjectDid string) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type candidate struct {
		id      uuid.UUID
		created time.Time
	}
	var matches []candidate
	for id, rec := range m.creds {
		if rec.SubjectDID == subjectDid && rec.Status == models.StatusActive {
			matches = append(matches, candidate{id: id, created: rec.CreatedAt})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].created.Before(matches[j].created) })
	ids := make([]uuid.UUID, len(matches))
	for i, c := range matches {
		ids[i] = c.id
	}
	return ids, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.Status, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.creds[id]
	if !ok || rec.Status != from {
		return fmt.Errorf("credential %s not in status %s: %w", id, from, sentinel.ErrInvalidState)
	}
	rec.Status = to
	rec.UpdatedAt = now
	m.creds[id] = rec
	return nil
}

func (m *Memory) Revoke(ctx context.Context, id uuid.UUID, now time.Time) error {
	return m.UpdateStatus(ctx, id, models.StatusActive, models.StatusRevoked, now)
}
