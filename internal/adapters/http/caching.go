package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		// Errors such as 503 must not be cached.
		if c.Response().StatusCode() >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		// Terrain does not change between raster imports.
		case strings.HasPrefix(path, "/v1/elevation"), strings.HasPrefix(path, "/api/elevation"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/tiles"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
