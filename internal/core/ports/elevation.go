package ports

import (
	"context"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// ElevationSource looks up terrain height at a point. Implementations return
// domain.ErrNoCoverage when no terrain data covers the point and
// domain.ErrUnavailable on transient failures. Retry and caching are the
// implementation's concern.
type ElevationSource interface {
	ElevationAt(ctx context.Context, point domain.GeoPoint) (float64, error)
}

// ElevationSourceFunc adapts a plain function to ElevationSource.
type ElevationSourceFunc func(ctx context.Context, point domain.GeoPoint) (float64, error)

// ElevationAt calls f.
func (f ElevationSourceFunc) ElevationAt(ctx context.Context, point domain.GeoPoint) (float64, error) {
	return f(ctx, point)
}

// TileRepository reads the raster tile catalogue.
type TileRepository interface {
	List(ctx context.Context, offset, limit int) ([]domain.Tile, int, error)
	GetByID(ctx context.Context, id int64) (*domain.Tile, error)
	Covering(ctx context.Context, point domain.GeoPoint) ([]domain.Tile, error)
}
