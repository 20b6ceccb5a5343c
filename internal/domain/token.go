package domain

import "time"

// TokenKind discriminates access tokens from refresh tokens
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims represents validated JWT claims
type TokenClaims struct {
	Subject   string
	Kind      TokenKind
	Email     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the token is expired at now
func (tc TokenClaims) IsExpired(now time.Time) bool {
	return !tc.ExpiresAt.After(now)
}

// TokenPair represents a freshly issued access/refresh token pair
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
