package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/repository"
	apperrors "github.com/spec-kit/token-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Middleware validates bearer access tokens and loads the caller principal.
// The token subject must still resolve to an active account whose username
// matches the claim; a renamed or deactivated account invalidates every
// outstanding token immediately.
type Middleware struct {
	verifier *Verifier
	users    repository.UserRepository
}

// NewMiddleware constructs the middleware.
func NewMiddleware(verifier *Verifier, users repository.UserRepository) *Middleware {
	return &Middleware{verifier: verifier, users: users}
}

// Handle enforces authentication for protected routes. Every rejection maps
// to the same generic response; which check failed is not disclosed.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	claims, err := m.verifier.Verify(c.UserContext(), parts[1], domain.TokenTypeAccess)
	if err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Data.ID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive || user.Username != claims.Data.Username {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	c.Locals(principalKey, domain.Principal{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}
