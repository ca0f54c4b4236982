package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"anchorid/internal/journal"
	"anchorid/pkg/platform/sentinel"
)

func newRecord(entity string, t journal.Type, status journal.Status, at time.Time) journal.Record {
	return journal.Record{
		ID:        uuid.New(),
		Entity:    entity,
		Type:      t,
		Status:    status,
		CreatedAt: at,
	}
}

func TestMemoryAppendOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Same timestamp on purpose: insertion order must still win.
	require.NoError(t, m.Append(ctx, newRecord("did:anchor:a", journal.TypeCreateDID, journal.StatusFailed, now)))
	require.NoError(t, m.Append(ctx, newRecord("did:anchor:a", journal.TypeCreateDID, journal.StatusConfirmed, now)))
	require.NoError(t, m.Append(ctx, newRecord("did:anchor:b", journal.TypeCreateDID, journal.StatusConfirmed, now)))

	list, err := m.ListByEntity(ctx, "did:anchor:a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, journal.StatusFailed, list[0].Status)
	require.Equal(t, journal.StatusConfirmed, list[1].Status)

	latest, err := m.LatestByEntity(ctx, "did:anchor:a", journal.TypeCreateDID)
	require.NoError(t, err)
	require.Equal(t, journal.StatusConfirmed, latest.Status)
}

func TestMemoryLatestFiltersByType(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	require.NoError(t, m.Append(ctx, newRecord("did:anchor:a", journal.TypeCreateDID, journal.StatusConfirmed, now)))
	require.NoError(t, m.Append(ctx, newRecord("did:anchor:a", journal.TypeRevokeDID, journal.StatusConfirmed, now)))

	latest, err := m.LatestByEntity(ctx, "did:anchor:a", journal.TypeCreateDID)
	require.NoError(t, err)
	require.Equal(t, journal.TypeCreateDID, latest.Type)

	_, err = m.LatestByEntity(ctx, "did:anchor:a", journal.TypeCreateVC)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryListEmpty(t *testing.T) {
	m := NewMemory()
	list, err := m.ListByEntity(context.Background(), "did:anchor:none")
	require.NoError(t, err)
	require.Empty(t, list)
}
