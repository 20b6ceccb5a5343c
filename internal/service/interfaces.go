package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/platform-services/internal/domain"
	"github.com/prperemyshlev/platform-services/internal/dto"
)

// AuthService defines methods for authentication operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	// Logout never fails; invalid tokens are logged and ignored.
	Logout(ctx context.Context, refreshToken string) error
	Verify(ctx context.Context, accessToken string) (*domain.User, error)
}

// UserService defines user management operations. callerID is the
// subject of a verified access token.
type UserService interface {
	List(ctx context.Context, query dto.ListUsersQuery) ([]*domain.User, dto.Pagination, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, callerID, id string, req *dto.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, callerID, id string) error
}

// NotificationService hands notifications to the configured sinks
type NotificationService interface {
	SendEmail(ctx context.Context, req *dto.EmailNotificationRequest) (string, error)
	SendSMS(ctx context.Context, req *dto.SMSNotificationRequest) (string, error)
	SendPush(ctx context.Context, req *dto.PushNotificationRequest) (string, error)
	SendBatch(ctx context.Context, req *dto.BatchNotificationRequest) (*dto.BatchNotificationResponse, error)
}

// Limiter decides whether a keyed request fits in its window
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitDecision, error)
}
