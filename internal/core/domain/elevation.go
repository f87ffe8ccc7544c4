package domain

import "time"

// ElevationSample is the terrain height at one point along a path.
type ElevationSample struct {
	Point           GeoPoint `json:"point"`
	ElevationMeters float64  `json:"elevation_m"`
}

// Profile is an ordered sequence of samples from a path's start to its end.
type Profile struct {
	Start    GeoPoint          `json:"start"`
	End      GeoPoint          `json:"end"`
	Samples  []ElevationSample `json:"samples"`
	LengthKm float64           `json:"length_km"`
}

// Elevations returns the sample heights in path order.
func (p Profile) Elevations() []float64 {
	out := make([]float64, len(p.Samples))
	for i, s := range p.Samples {
		out[i] = s.ElevationMeters
	}
	return out
}

// Len returns the number of samples.
func (p Profile) Len() int { return len(p.Samples) }

// Observer is one end of a sightline: a location and the altitude of the
// antenna or eye above mean sea level.
type Observer struct {
	Point        GeoPoint `json:"point"`
	HeightMeters float64  `json:"height_m"`
}

// Tile is a catalogue record for one stored raster tile (elevation_data).
type Tile struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	RasterDate time.Time `json:"rast_date"`
	Bounds     Bounds    `json:"bounds"`
}
