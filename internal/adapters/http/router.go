package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/sightline/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// legacySunset is when the /api/elevation aliases are removed.
var legacySunset = time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)

// LegacyRoutes lists the deprecated /api/elevation aliases and their successors.
var LegacyRoutes = []DeprecatedRoute{
	{Path: "/api/elevation", SunsetDate: legacySunset, Alternative: "/v1/elevation"},
	{Path: "/api/elevation/profile", SunsetDate: legacySunset, Alternative: "/v1/elevation/profile"},
	{Path: "/api/elevation/line-of-sight", SunsetDate: legacySunset, Alternative: "/v1/elevation/line-of-sight"},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1
	v1 := app.Group("/v1")
	v1.Get("/elevation", withTimeout(ElevationHandler(deps)))
	v1.Get("/elevation/profile", withTimeout(ProfileHandler(deps)))
	v1.Get("/elevation/line-of-sight", withTimeout(LineOfSightHandler(deps)))
	v1.Get("/elevation/visibility", withTimeout(VisibilityHandler(deps)))

	v1.Get("/tiles", withTimeout(ListTilesHandler(deps)))
	v1.Get("/tiles/covering", withTimeout(CoveringTilesHandler(deps)))
	v1.Get("/tiles/:id", withTimeout(GetTileHandler(deps)))

	v1.Post("/visibility/requests", withTimeout(EnqueueVisibilityHandler(deps)))

	// Deprecated aliases of the first elevation API
	legacy := app.Group("/api/elevation", DeprecationMiddleware(LegacyRoutes))
	legacy.Get("/", withTimeout(LegacyElevationHandler(deps)))
	legacy.Get("/profile", withTimeout(LegacyProfileHandler(deps)))
	legacy.Get("/line-of-sight", withTimeout(LegacyLineOfSightHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}
