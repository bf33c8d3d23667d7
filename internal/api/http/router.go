package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/GeneralMarshal/postgres-auth/internal/api/http/handlers"
	"github.com/GeneralMarshal/postgres-auth/internal/auth"
	"github.com/GeneralMarshal/postgres-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Role guards are built from the
// authentication middleware, so they always run downstream of it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("", cfg.AuthMiddleware.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Users.List)
}
