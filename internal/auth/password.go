package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword hashes a plaintext password. A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// VerifyUser reports whether plain is the password of user. Accounts
// without a stored hash never verify.
func VerifyUser(user *domain.User, plain string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return ComparePassword(user.PasswordHash, plain) == nil
}
