package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/token-service/pkg/util/errorutil"
)

// RequireAdmin ensures the authenticated caller holds the administrator role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("forbidden")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a caller principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return c.Next()
	}
}
