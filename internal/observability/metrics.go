package observability

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Metrics provides basic in-memory counters for inbound events and
// collaborator failures.
type Metrics struct {
	mu         sync.Mutex
	eventCount map[string]int64
	errorCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		eventCount: make(map[string]int64),
		errorCount: make(map[string]int64),
	}
}

// RecordEvent increments the counter for a processed domain event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[eventType]++
}

// RecordError increments the failure counter for a named operation.
func (m *Metrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[operation]++
}

// Snapshot copies current counter values.
func (m *Metrics) Snapshot() (events map[string]int64, errors map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	events = make(map[string]int64, len(m.eventCount))
	for k, v := range m.eventCount {
		events[k] = v
	}
	errors = make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errors[k] = v
	}
	return events, errors
}

// RequestLogger logs each HTTP request with its status and latency.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
