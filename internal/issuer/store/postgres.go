package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"anchorid/internal/issuer"
	"anchorid/pkg/platform/sentinel"
	txcontext "anchorid/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// Postgres persists issuer records.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, i issuer.Issuer) error {
	query := `
		INSERT INTO issuers (id, name, did, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, i.ID, i.Name, i.DID, i.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("issuer did %s: %w", i.DID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert issuer: %w", err)
	}
	return nil
}

func (s *Postgres) FindByDID(ctx context.Context, did string) (issuer.Issuer, error) {
	query := `SELECT id, name, did, created_at FROM issuers WHERE did = $1`
	var i issuer.Issuer
	err := s.execer(ctx).QueryRowContext(ctx, query, did).Scan(&i.ID, &i.Name, &i.DID, &i.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return issuer.Issuer{}, fmt.Errorf("issuer %s: %w", did, sentinel.ErrNotFound)
		}
		return issuer.Issuer{}, fmt.Errorf("query issuer: %w", err)
	}
	return i, nil
}

func (s *Postgres) List(ctx context.Context) ([]issuer.Issuer, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT id, name, did, created_at FROM issuers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list issuers: %w", err)
	}
	defer rows.Close()

	var issuers []issuer.Issuer
	for rows.Next() {
		var i issuer.Issuer
		if err := rows.Scan(&i.ID, &i.Name, &i.DID, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan issuer: %w", err)
		}
		issuers = append(issuers, i)
	}
	return issuers, rows.Err()
}
