package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hackclub/stonepheus/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Metrics  *handlers.MetricsHandler
	Slack    *handlers.SlackHandler
	Projects *handlers.ProjectsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/debug/metrics", cfg.Metrics.Snapshot)

	slackGroup := app.Group("/slack")
	slackGroup.Post("/events-endpoint", cfg.Slack.Events)
	slackGroup.Post("/interactivity-endpoint", cfg.Slack.Interactivity)
	slackGroup.Post("/command/:name", cfg.Slack.Command)

	app.Get("/api/projects/:id", cfg.Projects.Get)
}
