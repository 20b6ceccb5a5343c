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
	"go.uber.org/zap"
)

// userService implements UserService interface
type userService struct {
	users  repository.UserRepository
	tx     repository.Transactor
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService creates a new user service
func NewUserService(repos *repository.Repositories, logger *zap.Logger) UserService {
	return &userService{
		users:  repos.User,
		tx:     repos.Tx,
		logger: logger.Named("users"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns a page of users
func (s *userService) List(ctx context.Context, query dto.ListUsersQuery) ([]*domain.User, dto.Pagination, error) {
	query.Normalize()

	users, total, err := s.users.List(ctx, (query.Page-1)*query.PerPage, query.PerPage)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, dto.Pagination{}, apperror.Service("failed to list users", err)
	}

	return users, dto.NewPagination(query.Page, query.PerPage, total), nil
}

// Get returns a single user
func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		s.logger.Error("failed to get user", zap.String("user_id", id), zap.Error(err))
		return nil, apperror.Service("failed to get user", err)
	}
	return user, nil
}

// Update changes the caller's own name fields
func (s *userService) Update(ctx context.Context, callerID, id string, req *dto.UpdateUserRequest) (*domain.User, error) {
	if callerID != id {
		return nil, apperror.Forbidden("cannot update another user")
	}

	fields := utils.FieldErrors{}
	utils.ValidateName(fields, "first_name", req.FirstName)
	utils.ValidateName(fields, "last_name", req.LastName)
	if !fields.Empty() {
		return nil, apperror.Validation("invalid user data", fields)
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		s.logger.Error("failed to update user", zap.String("user_id", id), zap.Error(err))
		return nil, apperror.Service("failed to update user", err)
	}

	return user, nil
}

// Delete soft deletes the caller's own account and revokes all of its sessions
func (s *userService) Delete(ctx context.Context, callerID, id string) error {
	if callerID != id {
		return apperror.Forbidden("cannot delete another user")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository, tokens repository.TokenRepository) error {
		user, err := users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		user.IsActive = false
		user.DeletedAt = &now

		if err := users.Update(ctx, user); err != nil {
			return err
		}

		_, err = tokens.RevokeAllByUserID(ctx, id, now)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user not found")
		}
		s.logger.Error("failed to delete user", zap.String("user_id", id), zap.Error(err))
		return apperror.Service("failed to delete user", err)
	}

	s.logger.Info("user deleted", zap.String("user_id", id))

	return nil
}
