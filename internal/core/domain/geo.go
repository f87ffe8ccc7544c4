package domain

import (
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84) in decimal degrees.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Validate reports ErrInvalidArgument when the point is not finite or lies
// outside lon [-180, 180] / lat [-90, 90].
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidArgument, p.Lon)
	}
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidArgument, p.Lat)
	}
	return nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lon, p.Lat)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}
