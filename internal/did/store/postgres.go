package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"anchorid/internal/did/models"
	"anchorid/internal/identity/keys"
	"anchorid/pkg/platform/sentinel"
	txcontext "anchorid/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// Postgres persists DID records. Joins an ambient transaction from context
// when one is present.
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
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("marshal did document: %w", err)
	}
	query := `
		INSERT INTO dids (did, document, private_key, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		rec.DID, doc, rec.PrivateKey, rec.UserID, string(rec.Status),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("did %s: %w", rec.DID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert did: %w", err)
	}
	return nil
}

func (s *Postgres) FindByDID(ctx context.Context, did string) (models.Record, error) {
	query := `
		SELECT did, document, private_key, user_id, status, created_at, updated_at
		FROM dids
		WHERE did = $1
	`
	var rec models.Record
	var doc []byte
	var status string
	err := s.execer(ctx).QueryRowContext(ctx, query, did).Scan(
		&rec.DID, &doc, &rec.PrivateKey, &rec.UserID, &status,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Record{}, fmt.Errorf("did %s: %w", did, sentinel.ErrNotFound)
		}
		return models.Record{}, fmt.Errorf("query did: %w", err)
	}
	var document keys.Document
	if err := json.Unmarshal(doc, &document); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal did document: %w", err)
	}
	rec.Document = document
	rec.Status = models.Status(status)
	return rec, nil
}

// UpdateStatus moves a DID to the given status. The expected current status
// guards the write so concurrent transitions cannot race past the state
// machine.
func (s *Postgres) UpdateStatus(ctx context.Context, did string, from, to models.Status, now time.Time) error {
	query := `
		UPDATE dids
		SET status = $3, updated_at = $4
		WHERE did = $1 AND status = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, did, string(from), string(to), now)
	if err != nil {
		return fmt.Errorf("update did status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update did status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("did %s not in status %s: %w", did, from, sentinel.ErrInvalidState)
	}
	return nil
}
