package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware writes one structured line per request. Probe and
// scrape endpoints are skipped. Terrain queries are logged with their
// query string since the coordinates are what an operator needs.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Path() {
		case "/v1/health", "/v1/ready", "/metrics":
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if strings.HasPrefix(c.Path(), "/v1/elevation") || strings.HasPrefix(c.Path(), "/api/elevation") {
			attrs = append(attrs, slog.String("query", string(c.Request().URI().QueryString())))
		}

		level := slog.LevelInfo
		switch {
		case err != nil || status >= 500:
			level = slog.LevelError
		case status == fiber.StatusTooManyRequests:
			level = slog.LevelDebug
		case status >= 400:
			level = slog.LevelWarn
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		LoggerFromCtx(c.UserContext()).LogAttrs(c.UserContext(), level, "http request", attrs...)
		return err
	}
}
