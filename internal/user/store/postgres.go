package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"anchorid/internal/user"
	"anchorid/pkg/platform/sentinel"
	txcontext "anchorid/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// Postgres persists user records.
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

func (s *Postgres) Create(ctx context.Context, u user.User) error {
	query := `
		INSERT INTO users (id, email, full_name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, u.ID, u.Email, u.FullName, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("user email %s: %w", u.Email, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	query := `SELECT id, email, full_name, created_at FROM users WHERE id = $1`
	var u user.User
	err := s.execer(ctx).QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
		}
		return user.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
