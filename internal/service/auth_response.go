package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/prperemyshlev/platform-services/internal/domain"
	"github.com/prperemyshlev/platform-services/internal/dto"
	"github.com/prperemyshlev/platform-services/internal/repository"
)

const tokenTypeBearer = "Bearer"

// AuthResult is a freshly issued token pair and the user it belongs to
type AuthResult struct {
	User      *domain.User
	Tokens    domain.TokenPair
	ExpiresIn int // Access token expiry in seconds
}

// Response converts the result to the token envelope. The user is included on
// register and login only.
func (r *AuthResult) Response(withUser bool) *dto.AuthResponse {
	resp := &dto.AuthResponse{
		AccessToken:  r.Tokens.AccessToken,
		RefreshToken: r.Tokens.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    r.ExpiresIn,
	}
	if withUser {
		resp.User = dto.NewUserInfo(r.User)
	}
	return resp
}

// issueTokens signs a new pair and stores the hash of the refresh token through tokens
func (s *authService) issueTokens(ctx context.Context, tokens repository.TokenRepository, user *domain.User) (*AuthResult, error) {
	accessToken, accessExpiresAt, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	record := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: refreshExpiresAt,
		CreatedAt: s.now(),
	}

	if err := tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &AuthResult{
		User: user,
		Tokens: domain.TokenPair{
			AccessToken:      accessToken,
			RefreshToken:     refreshToken,
			AccessExpiresAt:  accessExpiresAt,
			RefreshExpiresAt: refreshExpiresAt,
		},
		ExpiresIn: s.jwtManager.GetAccessTokenExpiry(),
	}, nil
}

// hashToken hashes a token using SHA256
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
