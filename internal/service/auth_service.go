package service

import (
	"context"
	"errors"
	"time"

	"github.com/prperemyshlev/platform-services/internal/apperror"
	"github.com/prperemyshlev/platform-services/internal/domain"
	"github.com/prperemyshlev/platform-services/internal/dto"
	"github.com/prperemyshlev/platform-services/internal/repository"
	"github.com/prperemyshlev/platform-services/internal/utils"
	"github.com/prperemyshlev/platform-services/pkg/observability"
	"go.uber.org/zap"
)

// Operation names used in logs and metrics
const (
	opRegister = "register"
	opLogin    = "login"
	opRefresh  = "refresh"
	opLogout   = "logout"
	opVerify   = "verify"
)

const (
	msgInvalidCredentials  = "invalid credentials"
	msgInvalidRefreshToken = "invalid refresh token"
	msgInvalidToken        = "invalid token"
)

// errRejectedRefresh aborts a refresh transaction without revealing why
var errRejectedRefresh = errors.New("refresh token rejected")

// authService implements AuthService interface
type authService struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	tx         repository.Transactor
	jwtManager *utils.JWTManager
	bcryptCost int
	logger     *zap.Logger
	metrics    *observability.Instruments
	now        func() time.Time
}

// AuthOption configures an auth service
type AuthOption func(*authService)

// WithAuthClock replaces the time source used for token records
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) {
		s.now = func() time.Time { return now().UTC().Truncate(time.Second) }
	}
}

// WithAuthMetrics records every operation on the given instruments
func WithAuthMetrics(metrics *observability.Instruments) AuthOption {
	return func(s *authService) {
		s.metrics = metrics
	}
}

// NewAuthService creates a new auth service
func NewAuthService(
	repos *repository.Repositories,
	jwtManager *utils.JWTManager,
	bcryptCost int,
	logger *zap.Logger,
	opts ...AuthOption,
) AuthService {
	s := &authService{
		users:      repos.User,
		tokens:     repos.Token,
		tx:         repos.Tx,
		jwtManager: jwtManager,
		bcryptCost: bcryptCost,
		logger:     logger.Named("auth"),
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register registers a new user and opens its first session
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*AuthResult, error) {
	email := utils.SanitizeEmail(req.Email)

	if fields := utils.ValidateRegistration(email, req.Password, req.FirstName, req.LastName); !fields.Empty() {
		s.metrics.AuthOperation(ctx, opRegister, observability.OutcomeRejected)
		return nil, apperror.Validation("invalid registration data", fields)
	}

	// Check if user already exists
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.metrics.AuthOperation(ctx, opRegister, observability.OutcomeRejected)
		return nil, apperror.Conflict("user with this email already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.fail(ctx, opRegister, "failed to check user existence", err)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, s.fail(ctx, opRegister, "failed to hash password", err)
	}

	now := s.now()
	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// User and first session are stored atomically
	var result *AuthResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository, tokens repository.TokenRepository) error {
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		var err error
		result, err = s.issueTokens(ctx, tokens, user)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.AuthOperation(ctx, opRegister, observability.OutcomeRejected)
			return nil, apperror.Conflict("user with this email already exists")
		}
		return nil, s.fail(ctx, opRegister, "failed to register user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	s.metrics.AuthOperation(ctx, opRegister, observability.OutcomeSuccess)

	return result, nil
}

// Login authenticates a user and opens an additional session
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(req.Password)
			s.metrics.AuthOperation(ctx, opLogin, observability.OutcomeRejected)
			return nil, apperror.Unauthorized(msgInvalidCredentials, nil)
		}
		return nil, s.fail(ctx, opLogin, "failed to get user", err)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.metrics.AuthOperation(ctx, opLogin, observability.OutcomeRejected)
		return nil, apperror.Unauthorized(msgInvalidCredentials, nil)
	}

	if !user.IsActive {
		s.metrics.AuthOperation(ctx, opLogin, observability.OutcomeRejected)
		return nil, apperror.Forbidden("account is disabled")
	}

	result, err := s.issueTokens(ctx, s.tokens, user)
	if err != nil {
		return nil, s.fail(ctx, opLogin, "failed to issue tokens", err)
	}

	s.metrics.AuthOperation(ctx, opLogin, observability.OutcomeSuccess)

	return result, nil
}

// Refresh rotates a live refresh token into a new token pair
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.metrics.AuthOperation(ctx, opRefresh, observability.OutcomeRejected)
		return nil, apperror.Unauthorized(msgInvalidRefreshToken, err)
	}

	now := s.now()
	tokenHash := hashToken(refreshToken)

	var result *AuthResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository, tokens repository.TokenRepository) error {
		record, err := tokens.GetByTokenHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errRejectedRefresh
			}
			return err
		}

		if record.UserID != claims.Subject || !record.IsValid(now) {
			return errRejectedRefresh
		}

		user, err := users.GetByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errRejectedRefresh
			}
			return err
		}

		if !user.IsActive {
			return errRejectedRefresh
		}

		// A concurrent refresh of the same token loses here
		if err := tokens.Revoke(ctx, record.ID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errRejectedRefresh
			}
			return err
		}

		result, err = s.issueTokens(ctx, tokens, user)
		return err
	})
	if err != nil {
		if errors.Is(err, errRejectedRefresh) {
			s.logger.Debug("refresh rejected", zap.String("user_id", claims.Subject))
			s.metrics.AuthOperation(ctx, opRefresh, observability.OutcomeRejected)
			return nil, apperror.Unauthorized(msgInvalidRefreshToken, err)
		}
		return nil, s.fail(ctx, opRefresh, "failed to refresh tokens", err)
	}

	s.metrics.AuthOperation(ctx, opRefresh, observability.OutcomeSuccess)

	return result, nil
}

// Logout revokes every session of the token's subject. Expired tokens are accepted.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	userID, err := s.jwtManager.SubjectOf(refreshToken)
	if err != nil {
		s.logger.Debug("logout with unverifiable token", zap.Error(err))
		s.metrics.AuthOperation(ctx, opLogout, observability.OutcomeRejected)
		return nil
	}

	revoked, err := s.tokens.RevokeAllByUserID(ctx, userID, s.now())
	if err != nil {
		s.logger.Warn("failed to revoke sessions", zap.String("user_id", userID), zap.Error(err))
		s.metrics.AuthOperation(ctx, opLogout, observability.OutcomeError)
		return nil
	}

	s.logger.Info("user logged out", zap.String("user_id", userID), zap.Int64("sessions_revoked", revoked))
	s.metrics.AuthOperation(ctx, opLogout, observability.OutcomeSuccess)

	return nil
}

// Verify validates an access token and returns its user
func (s *authService) Verify(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		s.metrics.AuthOperation(ctx, opVerify, observability.OutcomeRejected)
		return nil, apperror.Unauthorized(msgInvalidToken, err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthOperation(ctx, opVerify, observability.OutcomeRejected)
			return nil, apperror.Unauthorized(msgInvalidToken, err)
		}
		return nil, s.fail(ctx, opVerify, "failed to get user", err)
	}

	s.metrics.AuthOperation(ctx, opVerify, observability.OutcomeSuccess)

	return user, nil
}

// fail logs a collaborator failure and wraps it as a ServiceError
func (s *authService) fail(ctx context.Context, op, message string, err error) error {
	s.logger.Error(message, zap.String("op", op), zap.Error(err))
	s.metrics.AuthOperation(ctx, op, observability.OutcomeError)
	return apperror.Service(message, err)
}
