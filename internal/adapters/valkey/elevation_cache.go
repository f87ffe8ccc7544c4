package valkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/pkg/metrics"
)

// noData marks a cached point with no terrain coverage.
const noData = "nodata"

// CachedElevationSource is a read-through cache in front of an
// ElevationSource. Heights and no-coverage answers are cached; transient
// failures are not. Cache errors fall through to the wrapped source.
type CachedElevationSource struct {
	next       ports.ElevationSource
	cache      ports.CacheService
	ttlSeconds int
}

// NewCachedElevationSource wraps next with cache.
func NewCachedElevationSource(next ports.ElevationSource, cache ports.CacheService, ttlSeconds int) *CachedElevationSource {
	return &CachedElevationSource{next: next, cache: cache, ttlSeconds: ttlSeconds}
}

// ElevationKey is the cache key for a point, rounded to about 11 cm.
func ElevationKey(p domain.GeoPoint) string {
	return fmt.Sprintf("elevation:%.6f:%.6f", p.Lon, p.Lat)
}

// ElevationAt implements ports.ElevationSource.
func (c *CachedElevationSource) ElevationAt(ctx context.Context, point domain.GeoPoint) (float64, error) {
	key := ElevationKey(point)

	if data, err := c.cache.Get(ctx, key); err == nil {
		if string(data) == noData {
			metrics.CacheHits.WithLabelValues("elevation").Inc()
			return 0, fmt.Errorf("%w: %s (cached)", domain.ErrNoCoverage, point)
		}
		if elev, perr := strconv.ParseFloat(string(data), 64); perr == nil {
			metrics.CacheHits.WithLabelValues("elevation").Inc()
			return elev, nil
		}
	} else if !IsMiss(err) && ctx.Err() == nil {
		slog.Debug("elevation cache read failed", "key", key, "error", err)
	}
	metrics.CacheMisses.WithLabelValues("elevation").Inc()

	elev, err := c.next.ElevationAt(ctx, point)
	switch {
	case err == nil:
		c.store(ctx, key, strconv.FormatFloat(elev, 'g', -1, 64))
	case errors.Is(err, domain.ErrNoCoverage):
		c.store(ctx, key, noData)
	}
	return elev, err
}

func (c *CachedElevationSource) store(ctx context.Context, key, value string) {
	if err := c.cache.Set(ctx, key, []byte(value), c.ttlSeconds); err != nil && ctx.Err() == nil {
		slog.Debug("elevation cache write failed", "key", key, "error", err)
	}
}
