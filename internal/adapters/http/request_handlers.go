package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// EnqueueVisibilityHandler queues a VisibilityRequest for the worker pool
// and answers 202 with the request id. Results are published on
// sightline.result.<policy> and relayed over /ws.
func EnqueueVisibilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Publisher == nil {
			return errUnavailable(c, "request queue not configured")
		}

		var req domain.VisibilityRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := validateRequest(&req); err != nil {
			return errFromDomain(c, err)
		}
		if req.ID == "" {
			req.ID = utils.UUIDv4()
		}

		if err := deps.Publisher.PublishVisibilityRequest(c.UserContext(), &req); err != nil {
			LoggerFromCtx(c.UserContext()).Error("enqueue visibility request", "id", req.ID, "error", err)
			return errUnavailable(c, "could not enqueue request")
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"id":     req.ID,
			"policy": req.Policy().PolicyName(),
		})
	}
}

// validateRequest rejects requests a worker could never evaluate.
func validateRequest(req *domain.VisibilityRequest) error {
	switch p := req.Policy().(type) {
	case domain.CurvatureSightline:
		if err := p.From.Point.Validate(); err != nil {
			return err
		}
		return p.To.Point.Validate()
	case domain.RadarMastDecay:
		if err := p.Start.Validate(); err != nil {
			return err
		}
		if err := p.End.Validate(); err != nil {
			return err
		}
		if p.Samples < 2 {
			return invalidf("samples must be at least 2, got %d", p.Samples)
		}
		return nil
	default:
		return invalidf("exactly one of curvature or radar_mast must be set")
	}
}
