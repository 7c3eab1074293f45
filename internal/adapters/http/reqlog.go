package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/eventures/eventures/internal/pkg/logging"
)

// RequestIDLogMiddleware puts a logger carrying the Fiber request ID into
// the request's user context, so pipeline log lines can be correlated with
// the access log.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, ok := c.Locals("requestid").(string)
		if !ok || rid == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", rid)
		c.SetUserContext(logging.WithLogger(c.UserContext(), reqLogger))

		return c.Next()
	}
}
