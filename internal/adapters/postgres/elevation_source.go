package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// ElevationSource implements ports.ElevationSource over PostGIS rasters in
// elevation_data. The newest tile wins where tiles overlap.
type ElevationSource struct {
	db *DB
}

// NewElevationSource creates a new ElevationSource.
func NewElevationSource(db *DB) *ElevationSource {
	return &ElevationSource{db: db}
}

const elevationAtSQL = `
	SELECT ST_Value(rast, 1, pt)
	FROM elevation_data, ST_SetSRID(ST_MakePoint($1, $2), 4326) AS pt
	WHERE ST_Intersects(rast, 1, pt)
	ORDER BY rast_date DESC NULLS LAST, id DESC
	LIMIT 1
`

// ElevationAt returns the band 1 value of the raster covering point.
func (s *ElevationSource) ElevationAt(ctx context.Context, point domain.GeoPoint) (float64, error) {
	var elev *float64
	err := s.db.Pool.QueryRow(ctx, elevationAtSQL, point.Lon, point.Lat).Scan(&elev)
	if err != nil {
		return 0, classify(point, err)
	}
	if elev == nil {
		return 0, fmt.Errorf("%w: nodata at %s", domain.ErrNoCoverage, point)
	}
	return *elev, nil
}

// classify maps pgx failures onto domain error kinds. Context errors are
// returned as is so callers can tell cancellation from a slow database.
func classify(point domain.GeoPoint, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: no tile covers %s", domain.ErrNoCoverage, point)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		return fmt.Errorf("elevation query: %w", err)
	}
	// Dial and network failures carry no SQLSTATE.
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
