package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eventures/eventures/api"
)

// SetupDocs serves Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml. Both are compiled into the binary.
func SetupDocs(app *fiber.App) {
	docs := app.Group("/docs")
	docs.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(api.DocsPage)
	})
	docs.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(api.OpenAPI)
	})
}
