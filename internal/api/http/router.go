package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oakstreet-digital/business-site-backend/internal/api/http/handlers"
	"github.com/oakstreet-digital/business-site-backend/internal/auth"
	"github.com/oakstreet-digital/business-site-backend/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Contact        *handlers.ContactHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.Middleware
	Limiter        *ratelimit.Limiter
	StaticDir      string
}

// RegisterRoutes wires HTTP routes. The rate limit applies uniformly to the
// whole /api surface; non-API paths serve the static site.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.Limiter.Middleware())

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Get("/profile", cfg.Auth.Profile)
	authProtected.Put("/change-password", cfg.Auth.ChangePassword)
	authProtected.Post("/logout", cfg.Auth.Logout)

	contactGroup := api.Group("/contact")
	contactGroup.Post("/submit", cfg.Contact.Submit)
	contactGroup.Get("/stats", cfg.Contact.Stats)

	adminGroup := api.Group("/admin", cfg.AuthMiddleware.Handle)
	adminGroup.Get("/contacts", cfg.Admin.List)
	adminGroup.Get("/contacts/:id", cfg.Admin.Get)
	adminGroup.Put("/contacts/:id/status", cfg.Admin.UpdateStatus)
	adminGroup.Post("/contacts/:id/note", cfg.Admin.AddNote)
	adminGroup.Delete("/contacts/:id", cfg.Admin.Delete)
	adminGroup.Get("/dashboard", cfg.Admin.Dashboard)
	adminGroup.Get("/users", cfg.Admin.Users)

	// Unmatched /api paths fall through to this handler.
	api.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "API endpoint not found",
		})
	})

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}
}
