package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// LoginRequest payload. Role is optional and restricts the portal.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RegisterRequest payload. The student portal sends userId and nickname;
// username and name are accepted as well.
type RegisterRequest struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// Resolve returns the username and display name, preferring the portal's
// field names.
func (r RegisterRequest) Resolve() (username, name string) {
	username, name = r.Username, r.Name
	if r.UserID != "" {
		username = r.UserID
	}
	if r.Nickname != "" {
		name = r.Nickname
	}
	return username, name
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse is a directory entry without credentials.
type UserResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Role      domain.Role `json:"role"`
	Specialty []string    `json:"specialty,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// UpdateUserRequest payload.
type UpdateUserRequest struct {
	Phone string `json:"phone"`
}

// NewUserResponse strips credentials from a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		Specialty: u.Specialty,
		CreatedAt: u.CreatedAt,
	}
}
