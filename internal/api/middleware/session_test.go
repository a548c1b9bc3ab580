package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokens_RoundTrip(t *testing.T) {
	tokens := NewSessionTokens("0123456789abcdef", time.Hour)
	tok, err := tokens.Issue("session-1")
	require.NoError(t, err)

	id, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)
}

func TestSessionTokens_Rejects(t *testing.T) {
	tokens := NewSessionTokens("0123456789abcdef", time.Hour)
	other := NewSessionTokens("fedcba9876543210", time.Hour)
	expired := NewSessionTokens("0123456789abcdef", -time.Minute)

	foreign, err := other.Issue("session-1")
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	old, err := expired.Issue("session-1")
	require.NoError(t, err)
	_, err = tokens.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
