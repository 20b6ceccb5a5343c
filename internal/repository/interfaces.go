package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/platform-services/internal/domain"
)

// UserRepository defines methods for user operations.
// Soft-deleted users are invisible to every read.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, offset, limit int) ([]*domain.User, int, error)
}

// TokenRepository defines methods for refresh token operations
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Revoke marks a single unrevoked record as revoked. ErrNotFound if the
	// record does not exist or was already revoked.
	Revoke(ctx context.Context, tokenID string, at time.Time) error
	RevokeAllByUserID(ctx context.Context, userID string, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Transactor runs fn with repositories bound to a single transaction.
// A non-nil error from fn rolls every write back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, users UserRepository, tokens TokenRepository) error) error
}
