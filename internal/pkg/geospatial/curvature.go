package geospatial

// EarthCurvature returns the apparent height loss in meters of a straight
// sightline of length distanceMeters relative to the curved surface.
func EarthCurvature(distanceMeters float64) float64 {
	return distanceMeters * distanceMeters / (2 * EarthRadiusMeters)
}

// CurvatureDrop returns the curvature correction at fractional position
// ratio along a path of totalMeters. It peaks at ratio 0.5 and vanishes at
// both endpoints.
func CurvatureDrop(totalMeters, ratio float64) float64 {
	return ratio * (1 - ratio) * EarthCurvature(totalMeters)
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, ratio float64) float64 {
	return a + (b-a)*ratio
}

// StepRatio returns i/(n-1), the fractional position of step i among n
// evenly spaced steps inclusive of both ends. n must be at least 2.
func StepRatio(i, n int) float64 {
	return float64(i) / float64(n-1)
}
