package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// AuthHandler exposes login, sign-up and the current user profile.
type AuthHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, users *service.UserService) *AuthHandler {
	return &AuthHandler{auth: authService, users: users}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role != "" && !role.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password, role)
	if err != nil {
		return err
	}
	return respond(c, dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	username, name := req.Resolve()
	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: username,
		Password: req.Password,
		Name:     name,
		Phone:    req.Phone,
		Role:     domain.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		return err
	}
	return respond(c, dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	})
}

// Me handles GET /users/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return respond(c, dto.NewUserResponse(user))
}

// UpdateMe handles PUT /users/me.
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateMe(c.UserContext(), actor, req.Phone)
	if err != nil {
		return err
	}
	return respond(c, dto.NewUserResponse(user))
}
