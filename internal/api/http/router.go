package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token/refresh", cfg.Auth.Refresh)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/token/revoke", cfg.Auth.Revoke)

	admin := protected.Group("", auth.RequireAdmin())
	admin.Post("/users/:id/revoke", cfg.Auth.RevokeUser)
	admin.Get("/users/:id/tokens", cfg.Auth.ListRevoked)
	admin.Post("/revoke-all", cfg.Auth.RevokeAll)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Put("/password", cfg.Users.ChangePassword)
	users.Get("/:id/profile", cfg.Users.GetProfile)
	users.Put("/:id/profile", cfg.Users.UpdateProfile)
	users.Get("/:id/metadata", cfg.Users.GetAllMetadata)
	users.Put("/:id/metadata", cfg.Users.SaveMetadata)
	users.Get("/:id/metadata/:name", cfg.Users.GetMetadata)
	users.Delete("/:id/metadata/:name", cfg.Users.RemoveMetadata)
	users.Get("/:id/avatar", cfg.Users.GetAvatar)
	users.Put("/:id/avatar", cfg.Users.UploadAvatar)
	users.Delete("/:id/avatar", cfg.Users.RemoveAvatar)
	users.Put("/:id/password", auth.RequireAdmin(), cfg.Users.ResetPassword)
}
