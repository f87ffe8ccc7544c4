package geospatial

import "math"

const (
	earthRadiusKm = 6371.0

	// EarthRadiusMeters is the mean radius used by the curvature model.
	EarthRadiusMeters = 6371000.0
)

// HaversineKm calculates the great-circle distance in kilometres between two
// points on a spherical Earth. It is an approximation: callers needing
// sub-metre accuracy should use an ellipsoidal geodesic instead.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a past 1 for near-antipodal points.
	a = math.Min(math.Max(a, 0), 1)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKm(lat1, lon1, lat2, lon2) * 1000
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// Destination returns the point reached by travelling distanceKm from
// (lat, lon) along the initial bearing (degrees clockwise from north).
func Destination(lat, lon, bearingDeg, distanceKm float64) (float64, float64) {
	delta := distanceKm / earthRadiusKm
	theta := toRad(bearingDeg)
	phi1 := toRad(lat)
	lambda1 := toRad(lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	lon2 := math.Mod(toDeg(lambda2)+540, 360) - 180
	return toDeg(phi2), lon2
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
