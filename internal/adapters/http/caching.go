package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on successful GET responses.
// maxAge is how long a pipeline result may be reused, matching the
// server-side response cache.
func CachingMiddleware(maxAge int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case c.Response().StatusCode() >= 400:
			ttl = "no-store"

		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		case path == "/v1/markers" || path == "/v1/locations":
			if maxAge > 0 {
				ttl = fmt.Sprintf("public, max-age=%d", maxAge)
			} else {
				ttl = "no-cache"
			}
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
