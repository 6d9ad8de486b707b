package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// UserService manages the user directory from the admin portal and the
// caller's own profile.
type UserService struct {
	users           repository.UserRepository
	bcryptCost      int
	defaultPassword string
	logger          *zap.Logger
	now             func() time.Time
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	UserRepo        repository.UserRepository
	BcryptCost      int
	DefaultPassword string
	Logger          *zap.Logger
	Clock           func() time.Time
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	s := &UserService{
		users:           deps.UserRepo,
		bcryptCost:      deps.BcryptCost,
		defaultPassword: deps.DefaultPassword,
		logger:          deps.Logger,
		now:             deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userError(err, id)
	}
	return user, nil
}

// ListByRole lists the students or the repairmen, ordered by id.
func (s *UserService) ListByRole(ctx context.Context, actor domain.Actor, role domain.Role) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, storeError(err)
	}
	return users, nil
}

// UpdatePhone changes the contact phone of a user.
func (s *UserService) UpdatePhone(ctx context.Context, actor domain.Actor, id int64, phone string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.setPhone(ctx, id, phone)
}

// UpdateMe changes the caller's own contact phone.
func (s *UserService) UpdateMe(ctx context.Context, actor domain.Actor, phone string) (*domain.User, error) {
	if !actor.Role.Valid() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return s.setPhone(ctx, actor.ID, phone)
}

func (s *UserService) setPhone(ctx context.Context, id int64, phone string) (*domain.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperrors.NewValidationError("phone required", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userError(err, id)
	}
	user.Phone = phone
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, userError(err, id)
	}
	return user, nil
}

// ResetPassword restores the configured default password.
func (s *UserService) ResetPassword(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return userError(err, id)
	}
	hash, err := auth.HashPassword(s.defaultPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return userError(err, id)
	}
	s.logger.Info("password reset", zap.Int64("user_id", id), zap.Int64("admin_id", actor.ID))
	return nil
}

func userError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	return storeError(err)
}
