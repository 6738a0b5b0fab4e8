package observability

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func TestRequestLoggerKeysByRouteTemplate(t *testing.T) {
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), metrics))
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	for i := 0; i < 50; i++ {
		for _, path := range []string{fmt.Sprintf("/items/%d", i), fmt.Sprintf("/missing/%d", i)} {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
			if err != nil {
				t.Fatalf("request %s: %v", path, err)
			}
			resp.Body.Close()
		}
	}

	requests := metrics.Snapshot().Requests
	if len(requests) != 2 {
		t.Fatalf("expected 2 request keys, got %d: %v", len(requests), requests)
	}
	if requests["/items/:id|GET|200"] != 50 {
		t.Fatalf("unexpected matched count: %v", requests)
	}
	if requests[UnmatchedRoute+"|GET|404"] != 50 {
		t.Fatalf("unexpected unmatched count: %v", requests)
	}
}
