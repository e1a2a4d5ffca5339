package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hackclub/stonepheus/internal/observability"
)

// MetricsHandler exposes the in-memory counters for debugging.
type MetricsHandler struct {
	metrics *observability.Metrics
}

// NewMetricsHandler returns a new handler instance.
func NewMetricsHandler(metrics *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Snapshot dumps the current event and error counters.
func (h *MetricsHandler) Snapshot(c *fiber.Ctx) error {
	events, errors := h.metrics.Snapshot()
	return c.JSON(fiber.Map{
		"events": events,
		"errors": errors,
	})
}
