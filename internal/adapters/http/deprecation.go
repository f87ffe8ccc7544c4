package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Handler path pattern
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := strings.TrimSuffix(c.Path(), "/")
		for _, d := range deprecated {
			if !matchPattern(path, d.Path) {
				continue
			}

			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			// RFC 8288
			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}

// matchPattern matches a path against a route pattern segment by segment.
// Segments starting with ':' match any single non-empty segment.
func matchPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}

	ps := strings.Split(strings.Trim(path, "/"), "/")
	qs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(qs) {
		return false
	}
	for i, q := range qs {
		if strings.HasPrefix(q, ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != q {
			return false
		}
	}
	return true
}
