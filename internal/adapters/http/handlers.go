package http

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/pkg/geospatial"
)

// VisibilityResponse is the body of a curvature sightline check.
type VisibilityResponse struct {
	Visible    bool    `json:"visible"`
	DistanceKm float64 `json:"distance_km"`
	Samples    int     `json:"samples"`
}

// LineOfSightResponse is the body of a radar mast check.
type LineOfSightResponse struct {
	Blocked bool   `json:"blocked"`
	Policy  string `json:"policy"`
	Samples int    `json:"samples"`
}

// ElevationHandler returns the terrain height at ?lon=&lat=.
func ElevationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lon", "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		elev, err := deps.Profiles.GetElevation(c.UserContext(), p)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(domain.ElevationSample{Point: p, ElevationMeters: elev})
	}
}

// ProfileHandler returns evenly spaced samples between two points.
func ProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, samples, err := pathQuery(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		profile, err := deps.Profiles.SampleProfile(c.UserContext(), start, end, samples)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(profile)
	}
}

// LineOfSightHandler runs the radar mast decay check.
func LineOfSightHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, samples, err := pathQuery(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radarHeight, err := queryFloat(c, "radarHeight")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		blocked, err := deps.Sightlines.IsBlocked(c.UserContext(), start, end, radarHeight, samples)
		if err != nil {
			return errFromDomain(c, err)
		}

		return c.JSON(LineOfSightResponse{
			Blocked: blocked,
			Policy:  domain.PolicyRadarMastDecay,
			Samples: samples,
		})
	}
}

// VisibilityHandler runs the curvature sightline check between two observers.
func VisibilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := queryObserver(c, "from")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		to, err := queryObserver(c, "to")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		visible, err := deps.Sightlines.IsVisible(c.UserContext(), from, to)
		if err != nil {
			return errFromDomain(c, err)
		}

		return c.JSON(VisibilityResponse{
			Visible:    visible,
			DistanceKm: geospatial.HaversineKm(from.Point.Lat, from.Point.Lon, to.Point.Lat, to.Point.Lon),
			Samples:    deps.Profiles.DenseSampleCount(from.Point, to.Point),
		})
	}
}

// ---- Legacy /api/elevation handlers (bare JSON values) ----

// LegacyElevationHandler returns the height as a bare number.
func LegacyElevationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lon", "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		elev, err := deps.Profiles.GetElevation(c.UserContext(), p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(elev)
	}
}

// LegacyProfileHandler returns the profile as a bare list of heights.
func LegacyProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, samples, err := pathQuery(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		profile, err := deps.Profiles.SampleProfile(c.UserContext(), start, end, samples)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(profile.Elevations())
	}
}

// LegacyLineOfSightHandler returns the radar mast check as a bare boolean.
func LegacyLineOfSightHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, samples, err := pathQuery(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radarHeight, err := queryFloat(c, "radarHeight")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		blocked, err := deps.Sightlines.IsBlocked(c.UserContext(), start, end, radarHeight, samples)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(blocked)
	}
}

// ---- Query parsing ----

func queryFloat(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

func queryPoint(c *fiber.Ctx, lonKey, latKey string) (domain.GeoPoint, error) {
	lon, err := queryFloat(c, lonKey)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	lat, err := queryFloat(c, latKey)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return domain.GeoPoint{Lon: lon, Lat: lat}, nil
}

// queryObserver reads <prefix>Lon, <prefix>Lat and <prefix>Height.
func queryObserver(c *fiber.Ctx, prefix string) (domain.Observer, error) {
	p, err := queryPoint(c, prefix+"Lon", prefix+"Lat")
	if err != nil {
		return domain.Observer{}, err
	}
	h, err := queryFloat(c, prefix+"Height")
	if err != nil {
		return domain.Observer{}, err
	}
	return domain.Observer{Point: p, HeightMeters: h}, nil
}

// pathQuery reads startLon, startLat, endLon, endLat and samples. Range
// checks on samples are left to the service.
func pathQuery(c *fiber.Ctx, deps *Dependencies) (start, end domain.GeoPoint, samples int, err error) {
	if start, err = queryPoint(c, "startLon", "startLat"); err != nil {
		return
	}
	if end, err = queryPoint(c, "endLon", "endLat"); err != nil {
		return
	}
	samples = deps.defaultSamples()
	if raw := c.Query("samples"); raw != "" {
		if samples, err = strconv.Atoi(raw); err != nil {
			err = fmt.Errorf("samples must be an integer")
		}
	}
	return
}
