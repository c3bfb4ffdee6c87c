package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// purpose checks.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	purposeSession = "session"
	purposeReset   = "reset"
)

type claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// Manager signs and verifies the tokens used for login sessions and password
// resets. Both are HS256 tokens keyed by the application secret; the purpose
// claim keeps a session token from ever being redeemed as a reset credential.
type Manager struct {
	secret []byte
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// GenerateSession issues a login session token for the given user.
func (m *Manager) GenerateSession(userID int64, ttl time.Duration) (string, error) {
	return m.generate(userID, purposeSession, ttl)
}

// VerifySession returns the user ID from a valid session token.
func (m *Manager) VerifySession(tokenStr string) (int64, error) {
	return m.verify(tokenStr, purposeSession)
}

// GenerateReset issues a password-reset token for the given user.
func (m *Manager) GenerateReset(userID int64, ttl time.Duration) (string, error) {
	return m.generate(userID, purposeReset, ttl)
}

// VerifyReset returns the user ID from a valid reset token.
func (m *Manager) VerifyReset(tokenStr string) (int64, error) {
	return m.verify(tokenStr, purposeReset)
}

func (m *Manager) generate(userID int64, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	})

	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) verify(tokenStr, purpose string) (int64, error) {
	parsed := &claims{}
	t, err := jwt.ParseWithClaims(tokenStr, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !t.Valid {
		return 0, ErrInvalidToken
	}
	if parsed.Purpose != purpose {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(parsed.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
