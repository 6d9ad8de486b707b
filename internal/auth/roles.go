package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// RequireRole admits only principals whose portal role is one of allowed.
// With no roles it only requires authentication.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	roles := make([]string, 0, len(allowed))
	for _, role := range allowed {
		roles = append(roles, string(role))
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 || hasRole(allowed, principal.User.Role) {
			return c.Next()
		}
		return apperrors.NewDomainError(apperrors.CodeForbidden, "insufficient role", fiber.StatusForbidden,
			map[string]any{"role": principal.User.Role, "allowed": roles})
	}
}

// RequireAnyRole ensures the caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return RequireRole()
}

func hasRole(allowed []domain.Role, role domain.Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
