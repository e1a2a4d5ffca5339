package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/hackclub/stonepheus/internal/events"
	"github.com/hackclub/stonepheus/internal/observability"
	"github.com/hackclub/stonepheus/internal/relay"
	"github.com/hackclub/stonepheus/internal/worker"
)

// SlackHandler terminates the Slack webhook endpoints. Every request is
// signature-verified, acknowledged immediately and processed on the worker
// pool so Slack never waits on downstream calls.
type SlackHandler struct {
	signingSecret string
	normalizer    *relay.Normalizer
	dispatcher    events.Dispatcher
	pool          *worker.Pool
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewSlackHandler returns a new handler instance.
func NewSlackHandler(
	signingSecret string,
	normalizer *relay.Normalizer,
	dispatcher events.Dispatcher,
	pool *worker.Pool,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SlackHandler {
	return &SlackHandler{
		signingSecret: signingSecret,
		normalizer:    normalizer,
		dispatcher:    dispatcher,
		pool:          pool,
		metrics:       metrics,
		logger:        logger,
	}
}

// verify checks the request signature against the signing secret.
func (h *SlackHandler) verify(c *fiber.Ctx) error {
	sv, err := slack.NewSecretsVerifier(http.Header(c.GetReqHeaders()), h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(c.Body()); err != nil {
		return err
	}
	return sv.Ensure()
}

func (h *SlackHandler) enqueue(event events.Event) {
	h.metrics.RecordEvent(string(event.Type))
	submitted := h.pool.Submit(func(ctx context.Context) {
		_ = h.dispatcher.Publish(ctx, event)
	})
	if !submitted {
		h.logger.Error("worker queue full, event dropped",
			zap.String("type", string(event.Type)), zap.String("id", event.ID))
	}
}

type eventsEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

// Events serves the Events API callback URL.
func (h *SlackHandler) Events(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		h.logger.Warn("event signature verification failed", zap.Error(err))
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	var envelope eventsEnvelope
	if err := json.Unmarshal(c.Body(), &envelope); err != nil {
		h.logger.Warn("malformed event envelope", zap.Error(err))
		return c.SendStatus(fiber.StatusOK)
	}

	switch envelope.Type {
	case "url_verification":
		return c.SendString(envelope.Challenge)
	case "event_callback":
		if event, ok := h.normalizer.NormalizeEvent(envelope.Event); ok {
			h.enqueue(event)
		}
	}
	return c.SendStatus(fiber.StatusOK)
}

// Interactivity serves block action callbacks.
func (h *SlackHandler) Interactivity(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		h.logger.Warn("interaction signature verification failed", zap.Error(err))
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(c.FormValue("payload")), &callback); err != nil {
		h.logger.Warn("malformed interaction payload", zap.Error(err))
		return c.SendStatus(fiber.StatusOK)
	}

	if event, ok := h.normalizer.NormalizeInteraction(&callback); ok {
		h.enqueue(event)
	}
	return c.SendStatus(fiber.StatusOK)
}

// Command serves slash command invocations. The command name comes from the
// route so every registered command shares one endpoint.
func (h *SlackHandler) Command(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		h.logger.Warn("command signature verification failed", zap.Error(err))
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	values, err := url.ParseQuery(string(c.Body()))
	if err != nil {
		h.logger.Warn("malformed command payload", zap.Error(err))
		return c.SendStatus(fiber.StatusOK)
	}
	cmd := slack.SlashCommand{
		Command:     values.Get("command"),
		Text:        values.Get("text"),
		UserID:      values.Get("user_id"),
		ChannelID:   values.Get("channel_id"),
		ResponseURL: values.Get("response_url"),
	}

	h.enqueue(h.normalizer.NormalizeSlashCommand(c.Params("name"), cmd))
	return c.SendStatus(fiber.StatusOK)
}
