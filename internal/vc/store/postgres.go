package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"anchorid/internal/vc/models"
	"anchorid/pkg/platform/sentinel"
	txcontext "anchorid/pkg/platform/tx"
)

// Postgres persists credential records. Joins an ambient transaction from
// context when one is present.
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

func (s *Postgres) Create(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal credential payload: %w", err)
	}
	query := `
		INSERT INTO verifiable_credentials
			(id, issuer_did, subject_did, credential_type, payload,
			 issuance_date, expiration_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		rec.ID, rec.IssuerDID, rec.SubjectDID, rec.CredentialType, payload,
		rec.IssuanceDate, rec.ExpirationDate, string(rec.Status),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

const selectColumns = `
	id, issuer_did, subject_did, credential_type, payload,
	issuance_date, expiration_date, status, created_at, updated_at
`

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM verifiable_credentials WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, id)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Record{}, fmt.Errorf("credential %s: %w", id, sentinel.ErrNotFound)
		}
		return models.Record{}, fmt.Errorf("query credential: %w", err)
	}
	return rec, nil
}

// ListByIDs loads credentials for presentation building. Order follows the
// requested ids; missing ids surface as ErrNotFound.
func (s *Postgres) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	textIDs := make([]string, len(ids))
	for i, id := range ids {
		textIDs[i] = id.String()
	}
	query := `SELECT ` + selectColumns + `
		FROM verifiable_credentials WHERE id = ANY($1::uuid[])`
	rows, err := s.execer(ctx).QueryContext(ctx, query, pq.Array(textIDs))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]models.Record, len(ids))
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("credential %s: %w", id, sentinel.ErrNotFound)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListActiveBySubject returns ids of active credentials about the subject.
// The revocation cascade consumes these one at a time.
func (s *Postgres) ListActiveBySubject(ctx context.Context, subjectDid string) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM verifiable_credentials
		WHERE subject_did = $1 AND status = $2
		ORDER BY created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, subjectDid, string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list credentials by subject: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan credential id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateStatus moves a credential to the given status, guarded by the
// expected current status so terminal statuses stay terminal under
// concurrency.
func (s *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.Status, now time.Time) error {
	query := `
		UPDATE verifiable_credentials
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, string(from), string(to), now)
	if err != nil {
		return fmt.Errorf("update credential status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("credential %s not in status %s: %w", id, from, sentinel.ErrInvalidState)
	}
	return nil
}

// Revoke is the cascade entry point: active -> revoked in one guarded write.
func (s *Postgres) Revoke(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.UpdateStatus(ctx, id, models.StatusActive, models.StatusRevoked, now)
}

type scanFunc func(dest ...any) error

func scanRecord(scan scanFunc) (models.Record, error) {
	var rec models.Record
	var payload []byte
	var status string
	err := scan(
		&rec.ID, &rec.IssuerDID, &rec.SubjectDID, &rec.CredentialType, &payload,
		&rec.IssuanceDate, &rec.ExpirationDate, &status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return models.Record{}, err
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal credential payload: %w", err)
	}
	rec.Status = models.Status(status)
	return rec, nil
}
