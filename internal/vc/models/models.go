// Package models defines the verifiable credential record, its payload
// envelope, and the credential status state machine.
package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	dErrors "anchorid/pkg/domain-errors"
)

// CredentialContext is the JSON-LD context for credentials.
const CredentialContext = "https://www.w3.org/2018/credentials/v1"

// BaseType is the type tag every credential carries.
const BaseType = "VerifiableCredential"

// Status of a credential record. active is the only non-terminal status.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// CanTransition reports whether the status may move to next. Credentials only
// move active -> {revoked, expired}; both targets are terminal.
func (s Status) CanTransition(next Status) bool {
	return s == StatusActive && (next == StatusRevoked || next == StatusExpired)
}

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// Subject carries the subject DID and the issued claims.
type Subject struct {
	ID     string         `json:"id"`
	Claims map[string]any `json:"-"`
}

// MarshalJSON flattens claims next to the subject id, the shape verifiers
// expect in credentialSubject.
func (s Subject) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.Claims)+1)
	for k, v := range s.Claims {
		flat[k] = v
	}
	flat["id"] = s.ID
	return json.Marshal(flat)
}

// UnmarshalJSON splits the subject id back out of the flattened claims.
func (s *Subject) UnmarshalJSON(b []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	if id, ok := flat["id"].(string); ok {
		s.ID = id
	}
	delete(flat, "id")
	s.Claims = flat
	return nil
}

// Payload is the credential envelope persisted and hashed for anchoring.
type Payload struct {
	Context           []string   `json:"@context"`
	ID                string     `json:"id"`
	Type              []string   `json:"type"`
	Issuer            string     `json:"issuer"`
	IssuanceDate      time.Time  `json:"issuanceDate"`
	ExpirationDate    *time.Time `json:"expirationDate,omitempty"`
	CredentialSubject Subject    `json:"credentialSubject"`
}

// NewPayload builds a credential envelope for the given issuer, subject and
// claims.
func NewPayload(id uuid.UUID, issuerDid, subjectDid, credType string, claims map[string]any, issuedAt time.Time, expires *time.Time) Payload {
	return Payload{
		Context:        []string{CredentialContext},
		ID:             "urn:uuid:" + id.String(),
		Type:           []string{BaseType, credType},
		Issuer:         issuerDid,
		IssuanceDate:   issuedAt.UTC(),
		ExpirationDate: expires,
		CredentialSubject: Subject{
			ID:     subjectDid,
			Claims: claims,
		},
	}
}

// Hash computes the content hash anchored on the ledger: SHA3-256 over the
// serialized envelope, 0x-prefixed hex.
func (p Payload) Hash() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal credential payload: %w", err)
	}
	sum := sha3.Sum256(b)
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// ValidateStructure checks the envelope fields without touching the store or
// the ledger: context, type tag, issuer, subject, and expiration against now.
// Used at presentation time, where verification must stay side-effect free.
func (p Payload) ValidateStructure(now time.Time) error {
	if !contains(p.Context, CredentialContext) {
		return dErrors.New(dErrors.CodeValidation, "credential is missing the base @context")
	}
	if !contains(p.Type, BaseType) {
		return dErrors.New(dErrors.CodeValidation, "credential is missing the VerifiableCredential type tag")
	}
	if p.Issuer == "" {
		return dErrors.New(dErrors.CodeValidation, "credential issuer is required")
	}
	if p.CredentialSubject.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "credential subject is required")
	}
	if p.ExpirationDate != nil && now.After(*p.ExpirationDate) {
		return dErrors.New(dErrors.CodeValidation, "credential has expired")
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// Record is a durable credential record. Never deleted; revocation and
// expiration are terminal status updates.
type Record struct {
	ID             uuid.UUID
	IssuerDID      string
	SubjectDID     string
	CredentialType string
	Payload        Payload
	IssuanceDate   time.Time
	ExpirationDate *time.Time
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
