package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/pkg/geospatial"
	"github.com/samirrijal/sightline/internal/pkg/metrics"
	"github.com/samirrijal/sightline/internal/pkg/telemetry"
)

// SamplingOptions tunes profile sampling.
type SamplingOptions struct {
	// ResolutionMeters is the spacing between samples for dense profiles.
	ResolutionMeters float64
	// MaxSamples bounds the number of elevation lookups for one profile.
	MaxSamples int
	// Concurrency bounds the number of lookups in flight for one profile.
	Concurrency int
	// LookupTimeout bounds each elevation lookup.
	LookupTimeout time.Duration
}

// DefaultSamplingOptions returns 100 m resolution, 2000 samples max,
// 8 concurrent lookups and a 2 s lookup timeout.
func DefaultSamplingOptions() SamplingOptions {
	return SamplingOptions{
		ResolutionMeters: 100,
		MaxSamples:       2000,
		Concurrency:      8,
		LookupTimeout:    2 * time.Second,
	}
}

func (o SamplingOptions) withDefaults() SamplingOptions {
	d := DefaultSamplingOptions()
	if o.ResolutionMeters <= 0 {
		o.ResolutionMeters = d.ResolutionMeters
	}
	if o.MaxSamples < 2 {
		o.MaxSamples = d.MaxSamples
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = d.LookupTimeout
	}
	return o
}

// ProfileService samples terrain elevations from an ElevationSource.
type ProfileService struct {
	source ports.ElevationSource
	opts   SamplingOptions
}

// NewProfileService creates a new ProfileService. Zero option fields take
// their defaults.
func NewProfileService(source ports.ElevationSource, opts SamplingOptions) *ProfileService {
	return &ProfileService{source: source, opts: opts.withDefaults()}
}

// Options returns the effective sampling options.
func (s *ProfileService) Options() SamplingOptions { return s.opts }

// GetElevation returns the terrain height at a single point.
func (s *ProfileService) GetElevation(ctx context.Context, point domain.GeoPoint) (float64, error) {
	if err := point.Validate(); err != nil {
		return 0, err
	}
	return s.lookup(ctx, point)
}

// SampleProfile returns samples evenly spaced elevations between start and
// end, both included. Longitude and latitude are interpolated independently
// at ratio i/(samples-1). Any failed lookup fails the whole profile with a
// *domain.PointError.
func (s *ProfileService) SampleProfile(ctx context.Context, start, end domain.GeoPoint, samples int) (_ *domain.Profile, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ProfileService.SampleProfile")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int(telemetry.AttrSamples, samples))

	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := end.Validate(); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if samples < 2 {
		return nil, fmt.Errorf("%w: samples must be at least 2, got %d", domain.ErrInvalidArgument, samples)
	}
	if samples > s.opts.MaxSamples {
		return nil, fmt.Errorf("%w: samples must be at most %d, got %d", domain.ErrInvalidArgument, s.opts.MaxSamples, samples)
	}

	points := interpolate(start, end, samples)
	out := make([]domain.ElevationSample, samples)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, p := range points {
		g.Go(func() error {
			elev, err := s.lookup(gctx, p)
			if err != nil {
				return &domain.PointError{Index: i, Point: p, Err: err}
			}
			out[i] = domain.ElevationSample{Point: p, ElevationMeters: elev}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.ProfileSamples.Observe(float64(samples))

	return &domain.Profile{
		Start:    start,
		End:      end,
		Samples:  out,
		LengthKm: geospatial.HaversineKm(start.Lat, start.Lon, end.Lat, end.Lon),
	}, nil
}

// SampleDense samples the path at the configured resolution. The sample
// count is clamped to MaxSamples on long paths.
func (s *ProfileService) SampleDense(ctx context.Context, start, end domain.GeoPoint) (*domain.Profile, error) {
	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := end.Validate(); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return s.SampleProfile(ctx, start, end, s.DenseSampleCount(start, end))
}

// DenseSampleCount returns the number of samples SampleDense uses for a path.
func (s *ProfileService) DenseSampleCount(start, end domain.GeoPoint) int {
	meters := geospatial.Haversine(start.Lat, start.Lon, end.Lat, end.Lon)
	n := int(math.Ceil(meters/s.opts.ResolutionMeters)) + 1
	if n < 2 {
		n = 2
	}
	if n > s.opts.MaxSamples {
		slog.Debug("dense profile clamped",
			"length_m", meters,
			"wanted", n,
			"max_samples", s.opts.MaxSamples,
		)
		n = s.opts.MaxSamples
	}
	return n
}

// lookup queries the source under the per-lookup timeout. A timeout of
// the lookup itself, while the caller is still waiting, is reported as
// ErrUnavailable.
func (s *ProfileService) lookup(ctx context.Context, p domain.GeoPoint) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	started := time.Now()
	elev, err := s.source.ElevationAt(callCtx, p)
	metrics.ElevationLookupDuration.Observe(time.Since(started).Seconds())

	if err == nil && (math.IsNaN(elev) || math.IsInf(elev, 0)) {
		err = fmt.Errorf("%w: source returned %v", domain.ErrNoCoverage, elev)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && !errors.Is(err, domain.ErrUnavailable) {
			err = fmt.Errorf("%w: lookup timed out after %s", domain.ErrUnavailable, s.opts.LookupTimeout)
		}
		metrics.ElevationLookups.WithLabelValues(lookupResult(err)).Inc()
		return 0, err
	}

	metrics.ElevationLookups.WithLabelValues("ok").Inc()
	return elev, nil
}

func lookupResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoCoverage):
		return "no_coverage"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// interpolate returns n points from start to end inclusive. The endpoints
// are returned unmodified.
func interpolate(start, end domain.GeoPoint, n int) []domain.GeoPoint {
	points := make([]domain.GeoPoint, n)
	for i := range points {
		switch i {
		case 0:
			points[i] = start
		case n - 1:
			points[i] = end
		default:
			ratio := geospatial.StepRatio(i, n)
			points[i] = domain.GeoPoint{
				Lon: geospatial.Lerp(start.Lon, end.Lon, ratio),
				Lat: geospatial.Lerp(start.Lat, end.Lat, ratio),
			}
		}
	}
	return points
}
