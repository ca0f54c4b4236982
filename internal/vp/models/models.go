// Package models defines the verifiable presentation envelope and its proof.
package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	vcmodels "anchorid/internal/vc/models"
)

// PresentationContext is the JSON-LD context for presentations.
const PresentationContext = "https://www.w3.org/2018/credentials/v1"

// BaseType is the type tag every presentation carries.
const BaseType = "VerifiablePresentation"

// Proof carries the holder's signature over the presentation envelope as a
// compact JWS.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verificationMethod"`
	Challenge          string    `json:"challenge,omitempty"`
	Domain             string    `json:"domain,omitempty"`
	JWS                string    `json:"jws"`
}

// Envelope is the presentation document: the holder's DID, the embedded
// credentials, and a proof binding them to a challenge.
type Envelope struct {
	Context              []string           `json:"@context"`
	ID                   string             `json:"id"`
	Type                 []string           `json:"type"`
	Holder               string             `json:"holder"`
	VerifiableCredential []vcmodels.Payload `json:"verifiableCredential"`
	Proof                *Proof             `json:"proof,omitempty"`
}

// NewEnvelope builds an unsigned presentation envelope.
func NewEnvelope(id uuid.UUID, holderDid string, creds []vcmodels.Payload) Envelope {
	return Envelope{
		Context:              []string{PresentationContext},
		ID:                   "urn:uuid:" + id.String(),
		Type:                 []string{BaseType},
		Holder:               holderDid,
		VerifiableCredential: creds,
	}
}

// Hash computes the content hash the proof signs: SHA3-256 over the envelope
// serialized without its proof, 0x-prefixed hex.
func (e Envelope) Hash() (string, error) {
	unsigned := e
	unsigned.Proof = nil
	b, err := json.Marshal(unsigned)
	if err != nil {
		return "", fmt.Errorf("marshal presentation envelope: %w", err)
	}
	sum := sha3.Sum256(b)
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// Record is a durable presentation record, updated in place with the outcome
// of the latest verification. Verifier is the relying party the proof domain
// names, when one was requested.
type Record struct {
	ID         uuid.UUID
	HolderDID  string
	Verifier   string
	Envelope   Envelope
	Verified   *bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
}
