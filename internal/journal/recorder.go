package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"anchorid/internal/platform/logger"
)

// Recorder wraps ledger calls so that every attempt, successful or not,
// produces exactly one journal record. It is shared by the DID and credential
// lifecycle managers.
type Recorder struct {
	store     Store
	publisher Publisher
	log       *slog.Logger
	clock     func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithPublisher enables best-effort fan-out of journal records.
func WithPublisher(p Publisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

// WithLogger sets the recorder logger.
func WithLogger(log *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store: store,
		log:   logger.Discard(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record runs call, journals the outcome, and returns the transaction hash.
// The returned error is the ledger error, untouched; journaling failures are
// logged but never surfaced, so a flaky journal cannot mask a ledger outcome.
func (r *Recorder) Record(ctx context.Context, entity string, t Type, call func(ctx context.Context) (string, error)) (string, error) {
	txHash, callErr := call(ctx)

	rec := Record{
		ID:        uuid.New(),
		Entity:    entity,
		TxHash:    txHash,
		Type:      t,
		Status:    StatusConfirmed,
		CreatedAt: r.clock(),
	}
	if callErr != nil {
		rec.TxHash = ""
		rec.Status = StatusFailed
		rec.ErrorMessage = callErr.Error()
	}

	// Journal writes use a fresh context scope: the record must land even if
	// the caller's context died during the ledger call.
	if err := r.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		r.log.Error("journal append failed",
			"entity", entity, "type", string(t), "error", err)
	}
	if r.publisher != nil {
		r.publisher.Publish(context.WithoutCancel(ctx), rec)
	}

	return txHash, callErr
}

// Latest returns the most recent journal record for the (entity, type) pair.
func (r *Recorder) Latest(ctx context.Context, entity string, t Type) (Record, error) {
	return r.store.LatestByEntity(ctx, entity, t)
}

// History returns all journal records for an entity in creation order.
func (r *Recorder) History(ctx context.Context, entity string) ([]Record, error) {
	return r.store.ListByEntity(ctx, entity)
}
