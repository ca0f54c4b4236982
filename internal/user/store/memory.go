package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"anchorid/internal/user"
	"anchorid/pkg/platform/sentinel"
)

// Memory is an in-memory user store for tests.
type Memory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]user.User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[uuid.UUID]user.User)}
}

func (m *Memory) Create(_ context.Context, u user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return u, nil
}
