package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-report-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Reports    *handlers.ReportsHandler
	KeyChecker *auth.KeyChecker
	Limiter    *ratelimit.Limiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Download authorizes itself: signed token or API key.
	app.Get("/reports/:name", cfg.Reports.Download)

	protected := app.Group("", auth.RequireAPIKey(cfg.KeyChecker))
	protected.Get("/sample-data", cfg.Reports.SampleData)
	protected.Get("/reports", cfg.Reports.List)
	protected.Post("/reports/:name/link", cfg.Reports.CreateLink)

	generate := protected.Group("")
	if cfg.Limiter != nil {
		generate.Use(RateLimitMiddleware(cfg.Limiter))
	}
	generate.Post("/reports", cfg.Reports.Generate)
}
