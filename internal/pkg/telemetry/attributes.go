package telemetry

// Span attribute keys shared by the use cases.
const (
	AttrPolicy     = "sightline.policy"
	AttrSamples    = "sightline.samples"
	AttrBlocked    = "sightline.blocked"
	AttrDistanceKm = "sightline.distance_km"
)
