package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// TileRepo implements ports.TileRepository with pgx.
type TileRepo struct {
	db *DB
}

// NewTileRepo creates a new TileRepo.
func NewTileRepo(db *DB) *TileRepo {
	return &TileRepo{db: db}
}

// Tiles without a stored boundary fall back to the raster envelope.
const tileColumns = `
	id, COALESCE(filename, ''), COALESCE(rast_date, 'epoch'::timestamptz),
	ST_YMin(env), ST_XMin(env), ST_YMax(env), ST_XMax(env)
`

const tileFrom = `
	FROM elevation_data,
	     LATERAL (SELECT ST_Envelope(COALESCE(boundary, ST_Envelope(rast)))::box2d AS env) e
`

// List returns one page of tiles ordered by id and the total tile count.
func (r *TileRepo) List(ctx context.Context, offset, limit int) ([]domain.Tile, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM elevation_data`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tiles: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+tileColumns+tileFrom+` ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	tiles, err := scanTiles(rows)
	return tiles, total, err
}

// GetByID returns a tile by id.
func (r *TileRepo) GetByID(ctx context.Context, id int64) (*domain.Tile, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+tileColumns+tileFrom+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	tiles, err := scanTiles(rows)
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("tile %d: %w", id, domain.ErrNotFound)
	}
	return &tiles[0], nil
}

// Covering returns the tiles whose raster intersects point, newest first.
func (r *TileRepo) Covering(ctx context.Context, point domain.GeoPoint) ([]domain.Tile, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+tileColumns+tileFrom+`
		WHERE ST_Intersects(rast, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY rast_date DESC NULLS LAST, id DESC
	`, point.Lon, point.Lat)
	if err != nil {
		return nil, err
	}
	return scanTiles(rows)
}

func scanTiles(rows pgx.Rows) ([]domain.Tile, error) {
	defer rows.Close()

	tiles := []domain.Tile{}
	for rows.Next() {
		var t domain.Tile
		if err := rows.Scan(
			&t.ID, &t.Filename, &t.RasterDate,
			&t.Bounds.MinLat, &t.Bounds.MinLon, &t.Bounds.MaxLat, &t.Bounds.MaxLon,
		); err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return tiles, nil
}
