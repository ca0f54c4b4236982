// Package journal is the append-only audit trail of ledger interactions.
// Every attempt produces exactly one record; records are never updated, and
// the most recent record per (entity, type) pair is authoritative.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which table a record belongs to.
type Kind string

const (
	KindDID Kind = "did"
	KindVC  Kind = "vc"
)

// Type names the ledger interaction being journaled.
type Type string

const (
	TypeCreateDID Type = "create-did"
	TypeRevokeDID Type = "revoke-did"
	TypeCreateVC  Type = "create-vc"
	TypeRevokeVC  Type = "revoke-vc"
)

// Kind returns the entity kind a transaction type belongs to.
func (t Type) Kind() Kind {
	switch t {
	case TypeCreateVC, TypeRevokeVC:
		return KindVC
	default:
		return KindDID
	}
}

// Status is the outcome of one ledger attempt.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
)

// Record is one journaled ledger attempt. Entity is a DID string or a
// credential id depending on the type's kind. TxHash is empty when the
// attempt never reached submission.
type Record struct {
	ID           uuid.UUID
	Entity       string
	TxHash       string
	Type         Type
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
}

// Store persists journal records. Append-only: implementations expose no
// update path.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// LatestByEntity returns the most recently created record for the
	// (entity, type) pair, or sentinel.ErrNotFound.
	LatestByEntity(ctx context.Context, entity string, t Type) (Record, error)
	// ListByEntity returns all records for an entity in creation order.
	ListByEntity(ctx context.Context, entity string) ([]Record, error)
}

// Publisher fans journal records out to interested consumers. Publishing is
// best-effort; failures must not affect the journaled operation.
type Publisher interface {
	Publish(ctx context.Context, rec Record)
}
