// Package ledger defines the contract surface of the external distributed
// ledger and the clients that talk to it. The ledger is a secondary integrity
// layer: calls are slow, may fail independently of local storage, and are
// never the primary source of truth for reads.
package ledger

import "context"

// VCStatus mirrors the contract's getVCStatus return values.
type VCStatus int

const (
	StatusUnregistered VCStatus = 0
	StatusActive       VCStatus = 1
	StatusRevoked      VCStatus = 2
)

func (s VCStatus) String() string {
	switch s {
	case StatusUnregistered:
		return "unregistered"
	case StatusActive:
		return "active"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// DIDEntry is the on-ledger view of a DID.
type DIDEntry struct {
	Hash  string `json:"hash"`
	Owner string `json:"owner"`
}

// Client submits state changes to the ledger contract and queries its view.
// Every call may return a transport or contract-level error; callers treat
// such failures as non-fatal once local state is committed.
type Client interface {
	// CreateDID anchors a DID document hash. Returns the transaction hash.
	CreateDID(ctx context.Context, id, documentHash string) (string, error)
	// UpdateDID records a new document hash or status tag for an existing DID.
	UpdateDID(ctx context.Context, id, statusTag string) (string, error)
	// RegisterVC anchors a credential content hash keyed by (issuer, subject).
	RegisterVC(ctx context.Context, issuerDid, subjectDid, hash string) (string, error)
	// RevokeVC marks a credential hash revoked on the ledger.
	RevokeVC(ctx context.Context, issuerDid, hash string) (string, error)
	// GetVCStatus reports the ledger's registration status for a credential.
	GetVCStatus(ctx context.Context, issuerDid, hash string) (VCStatus, error)
	// GetDID returns the anchored hash and owner for a DID.
	GetDID(ctx context.Context, id string) (DIDEntry, error)
}
