package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput is a self-service sign-up. Only students may register;
// repairmen and administrators are provisioned by seeding.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Phone    string
	Role     domain.Role
}

// AuthService coordinates login and sign-up for all three portals.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a student account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)

	missing := []string{}
	if input.Username == "" {
		missing = append(missing, "username")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if input.Name == "" {
		missing = append(missing, "nickname")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if input.Role != "" && input.Role != domain.RoleStudent {
		return nil, apperrors.NewForbidden("only students can register")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := time.Now()
	user := &domain.User{
		Username:     input.Username,
		Name:         input.Name,
		Phone:        input.Phone,
		Role:         domain.RoleStudent,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username already registered", map[string]any{"username": input.Username})
		}
		return nil, storeError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Login verifies credentials and issues a role-bearing token. When role is
// non-empty the account must belong to that portal.
func (s *AuthService) Login(ctx context.Context, username, password string, role domain.Role) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, storeError(err)
	}
	if !auth.VerifyUser(user, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if role != "" && user.Role != role {
		return nil, apperrors.NewForbidden("account does not belong to the " + string(role) + " portal")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
