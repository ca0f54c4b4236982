package keys

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"
)

// DocumentContext is the JSON-LD context for DID documents.
const DocumentContext = "https://www.w3.org/ns/did/v1"

// VerificationMethod describes one key usable to authenticate as the DID.
type VerificationMethod struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Controller   string `json:"controller"`
	PublicKeyHex string `json:"publicKeyHex"`
}

// Document is a DID document. Field order matches JSON key order so the
// serialized form, and therefore its hash, is stable.
type Document struct {
	Context            []string             `json:"@context"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication"`
	AssertionMethod    []string             `json:"assertionMethod"`
	Created            time.Time            `json:"created"`
}

// BuildDocument assembles a DID document for the given DID and public key.
func BuildDocument(did, publicKeyHex string, now time.Time) Document {
	keyID := did + "#key-1"
	return Document{
		Context: []string{DocumentContext},
		ID:      did,
		VerificationMethod: []VerificationMethod{{
			ID:           keyID,
			Type:         "Ed25519VerificationKey2020",
			Controller:   did,
			PublicKeyHex: publicKeyHex,
		}},
		Authentication:  []string{keyID},
		AssertionMethod: []string{keyID},
		Created:         now.UTC(),
	}
}

// DocumentHash computes the content hash anchored on the ledger: SHA3-256
// over the canonical JSON serialization, 0x-prefixed hex.
func DocumentHash(doc Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal did document: %w", err)
	}
	sum := sha3.Sum256(b)
	return "0x" + hex.EncodeToString(sum[:]), nil
}
