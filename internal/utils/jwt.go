package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/platform-services/internal/domain"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature or structure checks
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for well-formed tokens past their expiry
	ErrTokenExpired = errors.New("token is expired")

	// ErrWrongTokenKind is returned when an access token is presented as refresh or vice versa
	ErrWrongTokenKind = errors.New("invalid token type")
)

type tokenClaims struct {
	Kind  domain.TokenKind `json:"typ"`
	Email string           `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager manages JWT token operations
type JWTManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry, refreshTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (j *JWTManager) WithClock(now func() time.Time) *JWTManager {
	j.now = now
	return j
}

func (j *JWTManager) clock() time.Time {
	return j.now().UTC().Truncate(time.Second)
}

// GenerateAccessToken generates a new access token and returns it with its expiry
func (j *JWTManager) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	return j.sign(userID, email, domain.TokenKindAccess, j.accessTokenExpiry)
}

// GenerateRefreshToken generates a new refresh token and returns it with its expiry
func (j *JWTManager) GenerateRefreshToken(userID string) (string, time.Time, error) {
	return j.sign(userID, "", domain.TokenKindRefresh, j.refreshTokenExpiry)
}

func (j *JWTManager) sign(userID, email string, kind domain.TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := j.clock()
	expiresAt := now.Add(ttl)

	claims := tokenClaims{
		Kind:  kind,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (j *JWTManager) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validate(tokenString, domain.TokenKindAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validate(tokenString, domain.TokenKindRefresh)
}

// SubjectOf verifies the signature only and returns the token subject.
// Expired tokens are accepted.
func (j *JWTManager) SubjectOf(tokenString string) (string, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", ErrInvalidToken)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("missing subject: %w", ErrInvalidToken)
	}

	return claims.Subject, nil
}

func (j *JWTManager) validate(tokenString string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("missing subject: %w", ErrInvalidToken)
	}

	result := &domain.TokenClaims{
		Subject:   claims.Subject,
		Kind:      claims.Kind,
		Email:     claims.Email,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time.UTC()
	}

	return result, nil
}

func (j *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return j.secret, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}
