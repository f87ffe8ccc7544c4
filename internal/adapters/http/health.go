package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

// HealthHandler is the liveness probe. It never touches backing services.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	}
}

// readinessCheck probes one backing service. A nil probe means the service
// is not configured, which fails readiness only when required is set.
type readinessCheck struct {
	name     string
	required bool
	probe    func(ctx context.Context) error
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	checks := []readinessCheck{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if deps.DB != nil {
		checks[0].probe = deps.DB.Ping
	}
	if deps.NATS != nil {
		nc := deps.NATS
		checks[1].probe = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}
	if deps.Cache != nil {
		checks[2].probe = deps.Cache.Ping
	}
	return checks
}

// ReadyHandler is the readiness probe. The database must answer; NATS and
// the cache are optional but must be healthy when configured.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readyTimeout)
		defer cancel()

		results := make(map[string]string)
		ready := true
		for _, check := range readinessChecks(deps) {
			switch {
			case check.probe == nil:
				results[check.name] = "not configured"
				ready = ready && !check.required
			default:
				if err := check.probe(ctx); err != nil {
					results[check.name] = "error: " + err.Error()
					ready = false
				} else {
					results[check.name] = "ok"
				}
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": results})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	}
}
