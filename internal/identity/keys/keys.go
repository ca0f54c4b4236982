// Package keys generates key pairs and DID documents. Everything here is
// pure: deterministic given key material and a clock, no storage or ledger
// access.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "anchorid/pkg/domain-errors"
)

// KeyPair holds hex-encoded Ed25519 key material. The private key is the
// 32-byte seed and is sensitive; it is persisted only to support demo/test
// issuance flows.
type KeyPair struct {
	PublicKeyHex  string
	PrivateKeyHex string
}

// GenerateKeyPair creates a fresh Ed25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}
	return KeyPair{
		PublicKeyHex:  hex.EncodeToString(pub),
		PrivateKeyHex: hex.EncodeToString(priv.Seed()),
	}, nil
}

// Fingerprint derives the identifier segment of a DID from a public key:
// the first 16 bytes of SHA3-256 over the raw key, hex encoded.
func Fingerprint(pub ed25519.PublicKey) string {
	sum := sha3.Sum256(pub)
	return hex.EncodeToString(sum[:16])
}

// NewDID mints a DID string for the given method and public key.
func NewDID(method, publicKeyHex string) (string, error) {
	if method == "" {
		return "", dErrors.New(dErrors.CodeValidation, "did method is required")
	}
	pub, err := PublicKeyFromHex(publicKeyHex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("did:%s:%s", method, Fingerprint(pub)), nil
}

// FingerprintOf extracts the identifier segment of a DID string.
func FingerprintOf(did string) string {
	idx := strings.LastIndex(did, ":")
	if idx < 0 {
		return ""
	}
	return did[idx+1:]
}

// PublicKeyFromHex decodes a hex-encoded Ed25519 public key.
func PublicKeyFromHex(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "public key is not valid hex")
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, dErrors.Newf(dErrors.CodeValidation, "public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}

// PrivateKeyFromHex decodes a hex-encoded Ed25519 seed into a private key.
func PrivateKeyFromHex(s string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "private key is not valid hex")
	}
	if len(b) != ed25519.SeedSize {
		return nil, dErrors.Newf(dErrors.CodeValidation, "private key seed must be %d bytes", ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(b), nil
}
