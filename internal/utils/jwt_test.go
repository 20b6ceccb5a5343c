package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/platform-services/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestManager(now time.Time) *JWTManager {
	return NewJWTManager(testSecret, time.Hour, 7*24*time.Hour).WithClock(func() time.Time { return now })
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newTestManager(now)

	token, expiresAt, err := m.GenerateAccessToken("user-1", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, domain.TokenKindAccess, claims.Kind)
	assert.Equal(t, now, claims.IssuedAt)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, 3600, m.GetAccessTokenExpiry())
}

func TestJWTManager_RefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager(time.Now())

	token, _, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Empty(t, claims.Email)
}

func TestJWTManager_TokensMintedTogetherDiffer(t *testing.T) {
	m := newTestManager(time.Now())

	first, _, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)
	second, _, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWTManager_KindMismatch(t *testing.T) {
	m := newTestManager(time.Now())

	access, _, err := m.GenerateAccessToken("user-1", "user@example.com")
	require.NoError(t, err)
	refresh, _, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	_, err = m.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestJWTManager_Expired(t *testing.T) {
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	token, _, err := newTestManager(issued).GenerateAccessToken("user-1", "user@example.com")
	require.NoError(t, err)

	later := newTestManager(issued.Add(2 * time.Hour))
	_, err = later.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, _, err := newTestManager(time.Now()).GenerateAccessToken("user-1", "user@example.com")
	require.NoError(t, err)

	other := NewJWTManager("another-secret-key-that-is-at-least-32-chars", time.Hour, time.Hour)
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = other.SubjectOf(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"typ": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestManager(time.Now()).ValidateAccessToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_SubjectOfAcceptsExpired(t *testing.T) {
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	token, _, err := newTestManager(issued).GenerateRefreshToken("user-9")
	require.NoError(t, err)

	sub, err := newTestManager(issued.AddDate(0, 1, 0)).SubjectOf(token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", sub)

	_, err = newTestManager(issued).SubjectOf("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
