// Package store persists verifiable presentation records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"anchorid/internal/vp/models"
	"anchorid/pkg/platform/sentinel"
	txcontext "anchorid/pkg/platform/tx"
)

// Postgres persists presentation records. Joins an ambient transaction from
// context when one is present.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec.Envelope)
	if err != nil {
		return fmt.Errorf("marshal presentation envelope: %w", err)
	}
	query := `
		INSERT INTO verifiable_presentations
			(id, holder_did, verifier, payload, verification_result, verified_at, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		rec.ID, rec.HolderDID, rec.Verifier, payload,
		rec.Verified, rec.VerifiedAt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert presentation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (models.Record, error) {
	query := `
		SELECT id, holder_did, COALESCE(verifier, ''), payload,
		       verification_result, verified_at, created_at
		FROM verifiable_presentations WHERE id = $1
	`
	var rec models.Record
	var payload []byte
	err := s.execer(ctx).QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.HolderDID, &rec.Verifier, &payload,
		&rec.Verified, &rec.VerifiedAt, &rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Record{}, fmt.Errorf("presentation %s: %w", id, sentinel.ErrNotFound)
		}
		return models.Record{}, fmt.Errorf("query presentation: %w", err)
	}
	if err := json.Unmarshal(payload, &rec.Envelope); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal presentation envelope: %w", err)
	}
	return rec, nil
}

// SetVerification stores the outcome of the latest verification run.
func (s *Postgres) SetVerification(ctx context.Context, id uuid.UUID, verified bool, at time.Time) error {
	query := `
		UPDATE verifiable_presentations
		SET verification_result = $2, verified_at = $3
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, verified, at)
	if err != nil {
		return fmt.Errorf("record presentation verification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record presentation verification: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("presentation %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}
