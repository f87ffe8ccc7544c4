package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/pkg/metrics"
)

// TileService reads the raster tile catalogue.
type TileService struct {
	tiles ports.TileRepository
	cache ports.CacheService
}

// NewTileService creates a new TileService.
func NewTileService(tiles ports.TileRepository, cache ports.CacheService) *TileService {
	return &TileService{tiles: tiles, cache: cache}
}

// List returns one page of tiles ordered by id and the total count.
func (s *TileService) List(ctx context.Context, offset, limit int) ([]domain.Tile, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.tiles.List(ctx, offset, limit)
}

// GetByID returns a single tile.
func (s *TileService) GetByID(ctx context.Context, id int64) (*domain.Tile, error) {
	cacheKey := fmt.Sprintf("tiles:id:%d", id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var tile domain.Tile
			if err := json.Unmarshal(data, &tile); err == nil {
				metrics.CacheHits.WithLabelValues("tile").Inc()
				return &tile, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("tile").Inc()
	}

	tile, err := s.tiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(tile); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return tile, nil
}

// Covering returns the tiles whose raster extent contains point.
func (s *TileService) Covering(ctx context.Context, point domain.GeoPoint) ([]domain.Tile, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	return s.tiles.Covering(ctx, point)
}
