package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/studyshare-auth/pkg/util/errorutil"
)

// UnmatchedRoute labels requests that no registered route handled.
const UnmatchedRoute = "unmatched"

// RequestLogger writes one access log line per request and feeds request metrics.
// It runs inside the error handling middleware, so a returned error is translated
// to the status the client will receive.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status = apperrors.ToDomainError(err).HTTPStatus
		}

		metrics.RecordRequest(RouteLabel(c), c.Method(), status, latency)

		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

// RouteLabel returns the template of the deepest route that handled the
// request, for use as a bounded metrics key. It must be called after c.Next
// has returned. Requests that only passed through root middleware, or that
// matched nothing, share UnmatchedRoute.
func RouteLabel(c *fiber.Ctx) string {
	route := c.Route()
	if route == nil || len(route.Handlers) == 0 {
		return UnmatchedRoute
	}
	if route.Path == "/" && c.Path() != "/" {
		return UnmatchedRoute
	}
	return route.Path
}
