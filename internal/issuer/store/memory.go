package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"anchorid/internal/issuer"
	"anchorid/pkg/platform/sentinel"
)

// Memory is an in-memory issuer store for tests.
type Memory struct {
	mu      sync.RWMutex
	issuers map[string]issuer.Issuer
}

func NewMemory() *Memory {
	return &Memory{issuers: make(map[string]issuer.Issuer)}
}

func (m *Memory) Create(_ context.Context, i issuer.Issuer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.issuers[i.DID]; exists {
		return fmt.Errorf("issuer did %s: %w", i.DID, sentinel.ErrConflict)
	}
	m.issuers[i.DID] = i
	return nil
}

func (m *Memory) FindByDID(_ context.Context, did string) (issuer.Issuer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.issuers[did]
	if !ok {
		return issuer.Issuer{}, fmt.Errorf("issuer %s: %w", did, sentinel.ErrNotFound)
	}
	return i, nil
}

func (m *Memory) List(_ context.Context) ([]issuer.Issuer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]issuer.Issuer, 0, len(m.issuers))
	for _, i := range m.issuers {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}
