// Package cache holds resolution caches. Resolve is the hot read path;
// entries are invalidated on every status change so a cached resolution can
// never outlive a revocation.
package cache

import (
	"context"
	"sync"
	"time"

	"anchorid/internal/did/models"
)

// Memory is a TTL-bounded in-process resolution cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   func() time.Time
}

type memoryEntry struct {
	res      models.Resolution
	storedAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// WithClock overrides the clock for tests.
func (c *Memory) WithClock(clock func() time.Time) *Memory {
	c.clock = clock
	return c
}

func (c *Memory) Get(_ context.Context, did string) (models.Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[did]
	if !ok || c.clock().Sub(entry.storedAt) >= c.ttl {
		return models.Resolution{}, false
	}
	return entry.res, true
}

func (c *Memory) Set(_ context.Context, did string, res models.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[did] = memoryEntry{res: res, storedAt: c.clock()}
}

func (c *Memory) Invalidate(_ context.Context, did string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, did)
}
