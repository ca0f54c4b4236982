package store

import (
	"context"
	"sort"
	"sync"

	"anchorid/internal/journal"
	"anchorid/pkg/platform/sentinel"
)

// Memory is an in-memory journal store for tests and local development.
// Append-only like its Postgres counterpart.
type Memory struct {
	mu      sync.RWMutex
	records []entry
	seq     int64
}

type entry struct {
	rec journal.Record
	seq int64
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, rec journal.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.records = append(m.records, entry{rec: rec, seq: m.seq})
	return nil
}

func (m *Memory) LatestByEntity(_ context.Context, entity string, t journal.Type) (journal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].rec.Entity == entity && m.records[i].rec.Type == t {
			return m.records[i].rec, nil
		}
	}
	return journal.Record{}, sentinel.ErrNotFound
}

func (m *Memory) ListByEntity(_ context.Context, entity string) ([]journal.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entry
	for _, e := range m.records {
		if e.rec.Entity == entity {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	recs := make([]journal.Record, len(out))
	for i, e := range out {
		recs[i] = e.rec
	}
	return recs, nil
}
