package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, no_coverage, unavailable, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: requestID(c),
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errFromDomain maps a service error onto its HTTP status.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNoCoverage):
		return newError(c, 404, "no_coverage", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return errUnavailable(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, err.Error())
	}
}

// invalidf builds an error matching domain.ErrInvalidArgument.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
