package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	m := NewManager("test-secret")

	tokenStr, err := m.GenerateSession(42, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	userID, err := m.VerifySession(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestResetRoundTrip(t *testing.T) {
	m := NewManager("test-secret")

	tokenStr, err := m.GenerateReset(7, 30*time.Minute)
	require.NoError(t, err)

	userID, err := m.VerifyReset(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewManager("test-secret")

	tokenStr, err := m.GenerateReset(7, -time.Minute)
	require.NoError(t, err)

	_, err = m.VerifyReset(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	m := NewManager("test-secret")

	tokenStr, err := m.GenerateReset(7, time.Hour)
	require.NoError(t, err)

	tampered := tokenStr[:len(tokenStr)-2] + "xx"
	_, err = m.VerifyReset(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongSecretRejected(t *testing.T) {
	m := NewManager("test-secret")
	other := NewManager("other-secret")

	tokenStr, err := m.GenerateSession(7, time.Hour)
	require.NoError(t, err)

	_, err = other.VerifySession(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPurposeIsEnforced(t *testing.T) {
	m := NewManager("test-secret")

	sessionToken, err := m.GenerateSession(7, time.Hour)
	require.NoError(t, err)
	resetToken, err := m.GenerateReset(7, time.Hour)
	require.NoError(t, err)

	_, err = m.VerifyReset(sessionToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "session token must not redeem a password reset")

	_, err = m.VerifySession(resetToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "reset token must not establish a session")
}
