package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dErrors "anchorid/pkg/domain-errors"
)

type PayloadSuite struct {
	suite.Suite
	now     time.Time
	payload Payload
}

func TestPayloadSuite(t *testing.T) {
	suite.Run(t, new(PayloadSuite))
}

func (s *PayloadSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.payload = NewPayload(
		uuid.New(),
		"did:anchor:issuer",
		"did:anchor:subject",
		"AgeVerificationCredential",
		map[string]any{"age": 33},
		s.now,
		nil,
	)
}

func (s *PayloadSuite) TestNewPayload() {
	s.Equal([]string{CredentialContext}, s.payload.Context)
	s.Equal([]string{BaseType, "AgeVerificationCredential"}, s.payload.Type)
	s.Equal("did:anchor:issuer", s.payload.Issuer)
	s.Equal("did:anchor:subject", s.payload.CredentialSubject.ID)
	s.True(strings.HasPrefix(s.payload.ID, "urn:uuid:"))
}

func (s *PayloadSuite) TestSubjectSerialization() {
	s.Run("claims flatten next to the subject id", func() {
		b, err := json.Marshal(s.payload.CredentialSubject)
		s.Require().NoError(err)

		var flat map[string]any
		s.Require().NoError(json.Unmarshal(b, &flat))
		s.Equal("did:anchor:subject", flat["id"])
		s.Equal(float64(33), flat["age"])
	})

	s.Run("round-trips through json", func() {
		b, err := json.Marshal(s.payload)
		s.Require().NoError(err)

		var back Payload
		s.Require().NoError(json.Unmarshal(b, &back))
		s.Equal(s.payload.CredentialSubject.ID, back.CredentialSubject.ID)
		s.Equal(float64(33), back.CredentialSubject.Claims["age"])
	})
}

func (s *PayloadSuite) TestHash() {
	s.Run("is stable for equal content", func() {
		a, err := s.payload.Hash()
		s.Require().NoError(err)
		b, err := s.payload.Hash()
		s.Require().NoError(err)
		s.Equal(a, b)
		s.True(strings.HasPrefix(a, "0x"))
		s.Len(a, 66)
	})

	s.Run("changes when a claim changes", func() {
		a, err := s.payload.Hash()
		s.Require().NoError(err)

		tampered := s.payload
		tampered.CredentialSubject.Claims = map[string]any{"age": 34}
		b, err := tampered.Hash()
		s.Require().NoError(err)
		s.NotEqual(a, b)
	})
}

func (s *PayloadSuite) TestValidateStructure() {
	s.Run("valid payload passes", func() {
		s.NoError(s.payload.ValidateStructure(s.now))
	})

	s.Run("missing context fails", func() {
		p := s.payload
		p.Context = []string{"https://example.org/other"}
		err := p.ValidateStructure(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing base type fails", func() {
		p := s.payload
		p.Type = []string{"AgeVerificationCredential"}
		s.Error(p.ValidateStructure(s.now))
	})

	s.Run("missing issuer fails", func() {
		p := s.payload
		p.Issuer = ""
		s.Error(p.ValidateStructure(s.now))
	})

	s.Run("missing subject fails", func() {
		p := s.payload
		p.CredentialSubject.ID = ""
		s.Error(p.ValidateStructure(s.now))
	})

	s.Run("expired payload fails", func() {
		expired := s.now.Add(-time.Hour)
		p := s.payload
		p.ExpirationDate = &expired
		s.Error(p.ValidateStructure(s.now))
	})

	s.Run("future expiration passes", func() {
		future := s.now.Add(time.Hour)
		p := s.payload
		p.ExpirationDate = &future
		s.NoError(p.ValidateStructure(s.now))
	})
}

func (s *PayloadSuite) TestStatusTransitions() {
	s.True(StatusActive.CanTransition(StatusRevoked))
	s.True(StatusActive.CanTransition(StatusExpired))
	s.False(StatusRevoked.CanTransition(StatusActive))
	s.False(StatusRevoked.CanTransition(StatusExpired))
	s.False(StatusExpired.CanTransition(StatusRevoked))

	s.False(StatusActive.Terminal())
	s.True(StatusRevoked.Terminal())
	s.True(StatusExpired.Terminal())
}
