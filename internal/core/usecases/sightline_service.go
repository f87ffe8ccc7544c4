package usecases

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/pkg/geospatial"
	"github.com/samirrijal/sightline/internal/pkg/metrics"
	"github.com/samirrijal/sightline/internal/pkg/telemetry"
)

// SightlineService answers visibility questions over sampled terrain.
// It supports two policies that are deliberately kept apart: the
// curvature-aware sightline between two elevated observers (IsVisible) and
// the radar mast linear decay check (IsBlocked).
type SightlineService struct {
	profiles *ProfileService
}

// NewSightlineService creates a new SightlineService.
func NewSightlineService(profiles *ProfileService) *SightlineService {
	return &SightlineService{profiles: profiles}
}

// IsVisible reports whether to can be seen from from. Terrain is sampled
// at the configured resolution and compared against the straight line
// between the observer heights, lowered by Earth curvature.
func (s *SightlineService) IsVisible(ctx context.Context, from, to domain.Observer) (_ bool, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SightlineService.IsVisible",
		trace.WithAttributes(attribute.String(telemetry.AttrPolicy, domain.PolicyCurvatureSightline)))
	defer func() { endSpan(span, err) }()

	if err := validateHeight("from height", from.HeightMeters); err != nil {
		return false, err
	}
	if err := validateHeight("to height", to.HeightMeters); err != nil {
		return false, err
	}

	profile, err := s.profiles.SampleDense(ctx, from.Point, to.Point)
	if err != nil {
		return false, err
	}

	blocked := CurvatureSightlineBlocked(from, to, profile.Samples)
	span.SetAttributes(
		attribute.Int(telemetry.AttrSamples, profile.Len()),
		attribute.Float64(telemetry.AttrDistanceKm, profile.LengthKm),
		attribute.Bool(telemetry.AttrBlocked, blocked),
	)
	recordDecision(domain.PolicyCurvatureSightline, blocked)
	return !blocked, nil
}

// IsBlocked reports whether terrain rises above a line falling linearly from
// radarHeightMeters at start to zero at end, over samples evenly spaced
// points. No curvature correction is applied.
func (s *SightlineService) IsBlocked(ctx context.Context, start, end domain.GeoPoint, radarHeightMeters float64, samples int) (_ bool, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SightlineService.IsBlocked",
		trace.WithAttributes(attribute.String(telemetry.AttrPolicy, domain.PolicyRadarMastDecay)))
	defer func() { endSpan(span, err) }()

	if err := validateHeight("radar height", radarHeightMeters); err != nil {
		return false, err
	}

	profile, err := s.profiles.SampleProfile(ctx, start, end, samples)
	if err != nil {
		return false, err
	}

	blocked, err := RadarMastBlocked(radarHeightMeters, profile.Elevations())
	if err != nil {
		return false, err
	}
	span.SetAttributes(
		attribute.Int(telemetry.AttrSamples, profile.Len()),
		attribute.Bool(telemetry.AttrBlocked, blocked),
	)
	recordDecision(domain.PolicyRadarMastDecay, blocked)
	return blocked, nil
}

// Evaluate dispatches a tagged policy to IsVisible or IsBlocked.
func (s *SightlineService) Evaluate(ctx context.Context, policy domain.VisibilityPolicy) (domain.Decision, error) {
	switch p := policy.(type) {
	case domain.CurvatureSightline:
		visible, err := s.IsVisible(ctx, p.From, p.To)
		if err != nil {
			return domain.Decision{}, err
		}
		return domain.Decision{Policy: p.PolicyName(), Blocked: !visible}, nil
	case domain.RadarMastDecay:
		blocked, err := s.IsBlocked(ctx, p.Start, p.End, p.RadarHeightMeters, p.Samples)
		if err != nil {
			return domain.Decision{}, err
		}
		return domain.Decision{Policy: p.PolicyName(), Blocked: blocked}, nil
	default:
		return domain.Decision{}, fmt.Errorf("%w: unknown visibility policy %T", domain.ErrInvalidArgument, policy)
	}
}

// CurvatureSightlineBlocked scans samples in order and reports whether any
// terrain rises above the sightline at its position. The position ratio of
// a sample is its great-circle distance from the observer over the total
// path length.
func CurvatureSightlineBlocked(from, to domain.Observer, samples []domain.ElevationSample) bool {
	total := geospatial.Haversine(from.Point.Lat, from.Point.Lon, to.Point.Lat, to.Point.Lon)

	for _, sample := range samples {
		ratio := 0.0
		if total > 0 {
			d := geospatial.Haversine(from.Point.Lat, from.Point.Lon, sample.Point.Lat, sample.Point.Lon)
			ratio = math.Min(d/total, 1)
		}

		lineHeight := geospatial.Lerp(from.HeightMeters, to.HeightMeters, ratio)
		adjusted := lineHeight - geospatial.CurvatureDrop(total, ratio)

		if sample.ElevationMeters > adjusted {
			return true
		}
	}
	return false
}

// RadarMastBlocked scans elevations in order and reports whether any exceeds
// radarHeight·(1 − i/(n−1)). At least two elevations are required.
func RadarMastBlocked(radarHeight float64, elevations []float64) (bool, error) {
	n := len(elevations)
	if n < 2 {
		return false, fmt.Errorf("%w: need at least 2 elevations, got %d", domain.ErrInvalidArgument, n)
	}

	for i, terrain := range elevations {
		expected := radarHeight * (1 - geospatial.StepRatio(i, n))
		if terrain > expected {
			return true, nil
		}
	}
	return false, nil
}

func validateHeight(name string, h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", domain.ErrInvalidArgument, name, h)
	}
	return nil
}

func recordDecision(policy string, blocked bool) {
	outcome := "clear"
	if blocked {
		outcome = "blocked"
	}
	metrics.VisibilityDecisions.WithLabelValues(policy, outcome).Inc()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
