package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/studyshare-auth/internal/api/http/handlers"
	"github.com/spec-kit/studyshare-auth/internal/auth"
	"github.com/spec-kit/studyshare-auth/internal/domain"
)

// PublicPrefixes are reachable without an authenticated identity.
var PublicPrefixes = []string{"/auth/", "/health/", "/public/"}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Admin  *handlers.AdminHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", auth.RequireAuthenticated(), cfg.Auth.Me)

	if cfg.Admin != nil {
		admin := app.Group("/admin", auth.RequireRole(domain.RoleAdmin))
		admin.Post("/revocations/sweep", cfg.Admin.SweepRevocations)
	}
}
