package keys

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "anchorid/pkg/domain-errors"
)

type KeysSuite struct {
	suite.Suite
}

func TestKeysSuite(t *testing.T) {
	suite.Run(t, new(KeysSuite))
}

func (s *KeysSuite) TestGenerateKeyPair() {
	s.Run("generates distinct pairs", func() {
		a, err := GenerateKeyPair()
		s.Require().NoError(err)
		b, err := GenerateKeyPair()
		s.Require().NoError(err)
		s.NotEqual(a.PublicKeyHex, b.PublicKeyHex)
		s.NotEqual(a.PrivateKeyHex, b.PrivateKeyHex)
	})

	s.Run("key material round-trips through hex", func() {
		pair, err := GenerateKeyPair()
		s.Require().NoError(err)

		pub, err := PublicKeyFromHex(pair.PublicKeyHex)
		s.Require().NoError(err)
		priv, err := PrivateKeyFromHex(pair.PrivateKeyHex)
		s.Require().NoError(err)

		s.True(pub.Equal(priv.Public().(ed25519.PublicKey)))
	})
}

func (s *KeysSuite) TestNewDID() {
	pair, err := GenerateKeyPair()
	s.Require().NoError(err)

	s.Run("mints method-prefixed identifier", func() {
		did, err := NewDID("anchor", pair.PublicKeyHex)
		s.Require().NoError(err)
		s.True(strings.HasPrefix(did, "did:anchor:"))
		s.Len(FingerprintOf(did), 32)
	})

	s.Run("same key yields same did", func() {
		a, err := NewDID("anchor", pair.PublicKeyHex)
		s.Require().NoError(err)
		b, err := NewDID("anchor", pair.PublicKeyHex)
		s.Require().NoError(err)
		s.Equal(a, b)
	})

	s.Run("empty method is rejected", func() {
		_, err := NewDID("", pair.PublicKeyHex)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("garbage key is rejected", func() {
		_, err := NewDID("anchor", "not-hex")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("short key is rejected", func() {
		_, err := NewDID("anchor", "abcd")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *KeysSuite) TestDocument() {
	pair, err := GenerateKeyPair()
	s.Require().NoError(err)
	did, err := NewDID("anchor", pair.PublicKeyHex)
	s.Require().NoError(err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	doc := BuildDocument(did, pair.PublicKeyHex, now)

	s.Run("document references its did", func() {
		s.Equal(did, doc.ID)
		s.Require().Len(doc.VerificationMethod, 1)
		s.Equal(did+"#key-1", doc.VerificationMethod[0].ID)
		s.Equal(pair.PublicKeyHex, doc.VerificationMethod[0].PublicKeyHex)
		s.Equal([]string{did + "#key-1"}, doc.Authentication)
	})

	s.Run("hash is stable", func() {
		a, err := DocumentHash(doc)
		s.Require().NoError(err)
		b, err := DocumentHash(doc)
		s.Require().NoError(err)
		s.Equal(a, b)
		s.True(strings.HasPrefix(a, "0x"))
		s.Len(a, 66)
	})

	s.Run("hash changes with content", func() {
		a, err := DocumentHash(doc)
		s.Require().NoError(err)
		other := BuildDocument(did, pair.PublicKeyHex, now.Add(time.Second))
		b, err := DocumentHash(other)
		s.Require().NoError(err)
		s.NotEqual(a, b)
	})
}
