package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/core/usecases"
	"github.com/samirrijal/sightline/internal/pkg/geospatial"
)

// BearingInput is the input of the EvaluateBearing activity.
type BearingInput struct {
	Site              domain.GeoPoint
	BearingDegrees    float64
	RangeKm           float64
	RadarHeightMeters float64
	Samples           int
}

// BearingResult is the outcome of one bearing.
type BearingResult struct {
	BearingDegrees float64
	Target         domain.GeoPoint
	Blocked        bool
}

// CoverageActivities holds the activity implementations for the coverage sweep.
type CoverageActivities struct {
	Sightlines *usecases.SightlineService
	Publisher  ports.EventPublisher // optional
}

// EvaluateBearing runs the radar mast check from the site to the point at
// RangeKm along the bearing.
func (a *CoverageActivities) EvaluateBearing(ctx context.Context, in BearingInput) (BearingResult, error) {
	lat, lon := geospatial.Destination(in.Site.Lat, in.Site.Lon, in.BearingDegrees, in.RangeKm)
	target := domain.GeoPoint{Lon: lon, Lat: lat}

	blocked, err := a.Sightlines.IsBlocked(ctx, in.Site, target, in.RadarHeightMeters, in.Samples)
	if err != nil {
		return BearingResult{}, activityError(fmt.Sprintf("bearing %.1f", in.BearingDegrees), err)
	}
	return BearingResult{BearingDegrees: in.BearingDegrees, Target: target, Blocked: blocked}, nil
}

// PublishCoverage emits a finished report to the message broker.
func (a *CoverageActivities) PublishCoverage(ctx context.Context, report *domain.CoverageReport) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Info("no publisher configured, skipping coverage report")
		return nil
	}
	return a.Publisher.PublishCoverageReport(ctx, report)
}

// activityError marks errors that retrying cannot fix as non-retryable.
func activityError(what string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return temporal.NewNonRetryableApplicationError(what+": "+err.Error(), "InvalidArgument", err)
	case errors.Is(err, domain.ErrNoCoverage):
		return temporal.NewNonRetryableApplicationError(what+": "+err.Error(), "NoCoverage", err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
