package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct error", func(t *testing.T) {
		err := New(CodeNotFound, "did missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through wrap chain", func(t *testing.T) {
		inner := New(CodeNotFound, "row missing")
		outer := Wrap(inner, CodeInternal, "lookup failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotFound))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("store: %w", New(CodeInvalidState, "already revoked"))
		assert.True(t, HasCode(err, CodeInvalidState))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad input")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))

	outer := Wrap(New(CodeNotFound, "inner"), CodeLedgerFailure, "outer")
	assert.Equal(t, CodeLedgerFailure, CodeOf(outer))
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeLedgerFailure, "anchor did")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "anchor did: connection refused", err.Error())
	assert.Equal(t, "anchor did", err.Message())
}
