package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`            // Error code: bad_request, upstream_error, etc.
	Message   string `json:"message"`         // Human-readable message
	Stage     string `json:"stage,omitempty"` // Failing pipeline stage: query, fetch or parse
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code, stage, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		Stage:     stage,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", "", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", "", msg)
}

// errPipeline maps a pipeline failure onto an HTTP status.
func errPipeline(c *fiber.Ctx, err error) error {
	status, code, msg := classify(err)
	stage := domain.StageOf(err)
	if status >= 500 {
		logging.FromContext(c.UserContext()).Warn("pipeline error", "stage", stage, "error", err)
	}
	return newError(c, status, code, stage, msg)
}

// classify returns the HTTP status, error code and client message for err.
func classify(err error) (int, string, string) {
	var ce *domain.ConfigurationError
	var fe *domain.FetchError
	var pe *domain.ParseError

	switch {
	case errors.As(err, &ce):
		return fiber.StatusBadRequest, "bad_request", fmt.Sprintf("%s: %s", ce.Field, ce.Reason)
	case errors.As(err, &fe):
		switch {
		case errors.Is(fe.Kind, domain.ErrCircuitOpen):
			return fiber.StatusServiceUnavailable, "upstream_unavailable", "event API temporarily unavailable"
		case errors.Is(fe.Kind, domain.ErrCancelled):
			return fiber.StatusGatewayTimeout, "upstream_timeout", "event API request cancelled or timed out"
		case errors.Is(fe.Kind, domain.ErrHTTPStatus):
			return fiber.StatusBadGateway, "upstream_error", fmt.Sprintf("event API returned HTTP %d", fe.StatusCode)
		default:
			return fiber.StatusBadGateway, "upstream_error", "event API: " + fe.Kind.Error()
		}
	case errors.As(err, &pe):
		return fiber.StatusBadGateway, "upstream_error", "event API response: " + pe.Kind.Error()
	default:
		return fiber.StatusInternalServerError, "internal_error", "internal error"
	}
}
