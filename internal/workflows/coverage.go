package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/pkg/geospatial"
)

// TaskQueue is the default task queue for coverage sweeps.
const TaskQueue = "coverage-sweeps"

// CoverageSweepInput is the input for the coverage sweep workflow.
type CoverageSweepInput struct {
	Site              domain.GeoPoint
	RadarHeightMeters float64
	RangeKm           float64
	Bearings          int
	Samples           int
}

// Validate rejects sweeps that no bearing could evaluate.
func (in CoverageSweepInput) Validate() error {
	if err := in.Site.Validate(); err != nil {
		return err
	}
	if in.Bearings < 1 || in.Bearings > 3600 {
		return fmt.Errorf("%w: bearings must be in [1, 3600], got %d", domain.ErrInvalidArgument, in.Bearings)
	}
	if in.RangeKm <= 0 {
		return fmt.Errorf("%w: range must be positive, got %v km", domain.ErrInvalidArgument, in.RangeKm)
	}
	if in.Samples < 2 {
		return fmt.Errorf("%w: samples must be at least 2, got %d", domain.ErrInvalidArgument, in.Samples)
	}
	return nil
}

// BearingDegrees returns the i-th of n evenly spaced bearings clockwise from north.
func BearingDegrees(i, n int) float64 {
	return 360 * float64(i) / float64(n)
}

// CoverageSweepWorkflow runs the radar mast check along evenly spaced
// bearings around a site and reports which bearings are blocked within
// range. Bearings whose evaluation fails after retries are reported as
// failed rather than failing the sweep. The report is published when a
// publisher is configured; a publish failure is logged only.
func CoverageSweepWorkflow(ctx workflow.Context, input CoverageSweepInput) (*domain.CoverageReport, error) {
	logger := workflow.GetLogger(ctx)
	if err := input.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidArgument", err)
	}
	logger.Info("Starting coverage sweep", "site", input.Site.String(), "bearings", input.Bearings, "rangeKm", input.RangeKm)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"InvalidArgument", "NoCoverage"},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, input.Bearings)
	for i := range futures {
		futures[i] = workflow.ExecuteActivity(ctx, "EvaluateBearing", BearingInput{
			Site:              input.Site,
			BearingDegrees:    BearingDegrees(i, input.Bearings),
			RangeKm:           input.RangeKm,
			RadarHeightMeters: input.RadarHeightMeters,
			Samples:           input.Samples,
		})
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(input.Site.Lat, input.Site.Lon, input.RangeKm*1000)
	report := &domain.CoverageReport{
		Site:    input.Site,
		RangeKm: input.RangeKm,
		Area:    domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon},
		Blocked: []float64{},
		Clear:   []float64{},
	}
	for i, f := range futures {
		bearing := BearingDegrees(i, input.Bearings)
		var res BearingResult
		if err := f.Get(ctx, &res); err != nil {
			logger.Warn("bearing evaluation failed", "bearing", bearing, "error", err)
			report.Failed = append(report.Failed, bearing)
			continue
		}
		if res.Blocked {
			report.Blocked = append(report.Blocked, bearing)
		} else {
			report.Clear = append(report.Clear, bearing)
		}
	}

	if err := workflow.ExecuteActivity(ctx, "PublishCoverage", report).Get(ctx, nil); err != nil {
		logger.Warn("publish coverage report failed", "error", err)
	}

	logger.Info("Coverage sweep finished",
		"blocked", len(report.Blocked), "clear", len(report.Clear), "failed", len(report.Failed))
	return report, nil
}
