// Package models defines the DID record and its status state machine.
package models

import (
	"time"

	"github.com/google/uuid"

	"anchorid/internal/identity/keys"
)

// Status of a DID record.
type Status string

const (
	StatusActive    Status = "active"
	StatusRevoked   Status = "revoked"
	StatusSuspended Status = "suspended"
	StatusError     Status = "error"
)

// transitions is the DID state machine. revoked and error are terminal: an
// error DID must be recreated, never repaired.
var transitions = map[Status]map[Status]bool{
	StatusActive: {
		StatusRevoked:   true,
		StatusSuspended: true,
		StatusError:     true,
	},
	StatusSuspended: {
		StatusActive:  true,
		StatusRevoked: true,
	},
	StatusRevoked: {},
	StatusError:   {},
}

// CanTransition reports whether the state machine permits moving to next.
func (s Status) CanTransition(next Status) bool {
	return transitions[s][next]
}

// Terminal reports whether no transition leaves this status.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Record is a durable DID record. PrivateKey is sensitive and held only for
// demo/test issuance. Records are never physically deleted; revocation is a
// logical tombstone.
type Record struct {
	DID        string
	Document   keys.Document
	PrivateKey string
	UserID     *uuid.UUID
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Resolution is the read model served by Resolve: local document and status
// plus the most recent anchoring outcome from the journal.
type Resolution struct {
	DID          string        `json:"did"`
	Document     keys.Document `json:"document"`
	Status       Status        `json:"status"`
	AnchorTxHash string        `json:"anchor_tx_hash,omitempty"`
	LedgerError  string        `json:"ledger_error,omitempty"`
}
