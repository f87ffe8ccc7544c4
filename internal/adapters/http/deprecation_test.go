package http

import "testing"

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/api/elevation", "/api/elevation", true},
		{"/api/elevation/profile", "/api/elevation", false},
		{"/v1/tiles/42", "/v1/tiles/:id", true},
		{"/v1/tiles/", "/v1/tiles/:id", false},
		{"/v1/tiles/42/raster", "/v1/tiles/:id", false},
		{"/v2/tiles/42", "/v1/tiles/:id", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}

func TestWSSubject(t *testing.T) {
	tests := []struct {
		msg  wsMessage
		want string
		ok   bool
	}{
		{wsMessage{}, "sightline.result.>", true},
		{wsMessage{Channel: "results", Policy: "radar_mast_decay"}, "sightline.result.radar_mast_decay", true},
		{wsMessage{Channel: "results", Policy: "curvature_sightline"}, "sightline.result.curvature_sightline", true},
		{wsMessage{Channel: "coverage"}, "sightline.coverage.>", true},
		{wsMessage{Channel: "results", Policy: "bogus"}, "", false},
		{wsMessage{Channel: "vehicles"}, "", false},
	}
	for _, tt := range tests {
		got, ok := wsSubject(tt.msg)
		if got != tt.want || ok != tt.ok {
			t.Errorf("wsSubject(%+v) = (%q, %v), want (%q, %v)", tt.msg, got, ok, tt.want, tt.ok)
		}
	}
}
