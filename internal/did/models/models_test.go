package models

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type StatusSuite struct {
	suite.Suite
}

func TestStatusSuite(t *testing.T) {
	suite.Run(t, new(StatusSuite))
}

func (s *StatusSuite) TestCanTransition() {
	cases := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"active to revoked", StatusActive, StatusRevoked, true},
		{"active to suspended", StatusActive, StatusSuspended, true},
		{"active to error", StatusActive, StatusError, true},
		{"suspended to active", StatusSuspended, StatusActive, true},
		{"suspended to revoked", StatusSuspended, StatusRevoked, true},
		{"suspended to error", StatusSuspended, StatusError, false},
		{"revoked to active", StatusRevoked, StatusActive, false},
		{"revoked to suspended", StatusRevoked, StatusSuspended, false},
		{"error to active", StatusError, StatusActive, false},
		{"active to active", StatusActive, StatusActive, false},
		{"unknown status", Status("bogus"), StatusActive, false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.allowed, tc.from.CanTransition(tc.to))
		})
	}
}

func (s *StatusSuite) TestTerminal() {
	s.False(StatusActive.Terminal())
	s.False(StatusSuspended.Terminal())
	s.True(StatusRevoked.Terminal())
	s.True(StatusError.Terminal())
}

func (s *StatusSuite) TestIsValid() {
	s.True(StatusActive.IsValid())
	s.True(StatusRevoked.IsValid())
	s.True(StatusSuspended.IsValid())
	s.True(StatusError.IsValid())
	s.False(Status("bogus").IsValid())
	s.False(Status("").IsValid())
}
