package store

import (
	"context"
	"database/sql"
	"fmt"

	"anchorid/internal/journal"
	"anchorid/pkg/platform/sentinel"
	txcontext "anchorid/pkg/platform/tx"
)

// Postgres persists journal records. DID-keyed records live in
// blockchain_transactions, credential-keyed records in
// vc_blockchain_transactions, matching the persisted schema. Only INSERT and
// SELECT statements exist here; the journal is append-only by construction.
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

func tableFor(kind journal.Kind) (table, entityCol string) {
	if kind == journal.KindVC {
		return "vc_blockchain_transactions", "vc_id"
	}
	return "blockchain_transactions", "did"
}

func (s *Postgres) Append(ctx context.Context, rec journal.Record) error {
	table, entityCol := tableFor(rec.Type.Kind())
	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s, tx_hash, tx_type, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`, table, entityCol)
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID, rec.Entity, rec.TxHash, string(rec.Type), string(rec.Status),
		rec.ErrorMessage, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}

func (s *Postgres) LatestByEntity(ctx context.Context, entity string, t journal.Type) (journal.Record, error) {
	table, entityCol := tableFor(t.Kind())
	query := fmt.Sprintf(`
		SELECT id, %s, tx_hash, tx_type, status, COALESCE(error_message, ''), created_at
		FROM %s
		WHERE %s = $1 AND tx_type = $2
		ORDER BY seq DESC
		LIMIT 1
	`, entityCol, table, entityCol)

	var rec journal.Record
	var typ, status string
	err := s.execer(ctx).QueryRowContext(ctx, query, entity, string(t)).Scan(
		&rec.ID, &rec.Entity, &rec.TxHash, &typ, &status, &rec.ErrorMessage, &rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return journal.Record{}, sentinel.ErrNotFound
		}
		return journal.Record{}, fmt.Errorf("query latest journal record: %w", err)
	}
	rec.Type = journal.Type(typ)
	rec.Status = journal.Status(status)
	return rec, nil
}

func (s *Postgres) ListByEntity(ctx context.Context, entity string) ([]journal.Record, error) {
	// An entity key is either a DID or a credential id, so exactly one of the
	// two tables can match; querying both keeps the caller agnostic.
	query := `
		SELECT id, did, tx_hash, tx_type, status, COALESCE(error_message, ''), created_at, seq
		FROM blockchain_transactions WHERE did = $1
		UNION ALL
		SELECT id, vc_id, tx_hash, tx_type, status, COALESCE(error_message, ''), created_at, seq
		FROM vc_blockchain_transactions WHERE vc_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entity)
	if err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}
	defer rows.Close()

	var recs []journal.Record
	for rows.Next() {
		var rec journal.Record
		var typ, status string
		var seq int64
		if err := rows.Scan(&rec.ID, &rec.Entity, &rec.TxHash, &typ, &status,
			&rec.ErrorMessage, &rec.CreatedAt, &seq); err != nil {
			return nil, fmt.Errorf("scan journal record: %w", err)
		}
		rec.Type = journal.Type(typ)
		rec.Status = journal.Status(status)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
