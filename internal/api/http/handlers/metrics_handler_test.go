package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/hackclub/stonepheus/internal/observability"
)

func TestMetricsSnapshot(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.RecordEvent("new_ticket")
	metrics.RecordEvent("new_ticket")
	metrics.RecordError("backend_reply")

	app := fiber.New()
	app.Get("/debug/metrics", NewMetricsHandler(metrics).Snapshot)

	res, err := app.Test(httptest.NewRequest("GET", "/debug/metrics", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	var body struct {
		Events map[string]int64 `json:"events"`
		Errors map[string]int64 `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Events["new_ticket"] != 2 {
		t.Errorf("events = %v", body.Events)
	}
	if body.Errors["backend_reply"] != 1 {
		t.Errorf("errors = %v", body.Errors)
	}
}
