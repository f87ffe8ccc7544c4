package domain

// Policy names as they appear on the wire and in metrics.
const (
	PolicyCurvatureSightline = "curvature_sightline"
	PolicyRadarMastDecay     = "radar_mast_decay"
)

// VisibilityPolicy is one of the supported visibility tests. The set is
// closed: CurvatureSightline and RadarMastDecay.
type VisibilityPolicy interface {
	PolicyName() string
	isVisibilityPolicy()
}

// CurvatureSightline tests a straight sightline between two elevated
// observers, lowered by Earth curvature, against densely sampled terrain.
type CurvatureSightline struct {
	From Observer `json:"from"`
	To   Observer `json:"to"`
}

func (CurvatureSightline) PolicyName() string  { return PolicyCurvatureSightline }
func (CurvatureSightline) isVisibilityPolicy() {}

// RadarMastDecay tests terrain against a line falling linearly from the
// radar height at Start to zero at End, over a fixed number of samples.
// No curvature correction is applied.
type RadarMastDecay struct {
	Start             GeoPoint `json:"start"`
	End               GeoPoint `json:"end"`
	RadarHeightMeters float64  `json:"radar_height_m"`
	Samples           int      `json:"samples"`
}

func (RadarMastDecay) PolicyName() string  { return PolicyRadarMastDecay }
func (RadarMastDecay) isVisibilityPolicy() {}

// Decision is the outcome of evaluating a VisibilityPolicy.
type Decision struct {
	Policy  string `json:"policy"`
	Blocked bool   `json:"blocked"`
}

// VisibilityRequest is a queued evaluation. Exactly one of the policy
// fields is set.
type VisibilityRequest struct {
	ID        string              `json:"id"`
	Curvature *CurvatureSightline `json:"curvature,omitempty"`
	RadarMast *RadarMastDecay     `json:"radar_mast,omitempty"`
}

// Policy returns the request's policy, or nil when none or both are set.
func (r VisibilityRequest) Policy() VisibilityPolicy {
	switch {
	case r.Curvature != nil && r.RadarMast == nil:
		return *r.Curvature
	case r.RadarMast != nil && r.Curvature == nil:
		return *r.RadarMast
	default:
		return nil
	}
}

// VisibilityResult is published after a queued request has been evaluated.
type VisibilityResult struct {
	RequestID string   `json:"request_id"`
	Decision  Decision `json:"decision"`
	Error     string   `json:"error,omitempty"`
}

// CoverageReport summarises a radar coverage sweep by bearing in degrees.
type CoverageReport struct {
	Site    GeoPoint  `json:"site"`
	RangeKm float64   `json:"range_km"`
	Area    Bounds    `json:"area"`
	Blocked []float64 `json:"blocked"`
	Clear   []float64 `json:"clear"`
	Failed  []float64 `json:"failed,omitempty"`
}
