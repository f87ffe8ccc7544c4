package geospatial

import (
	"math"
	"testing"
)

func TestEarthCurvature_ZeroAtOrigin(t *testing.T) {
	if got := EarthCurvature(0); got != 0 {
		t.Errorf("EarthCurvature(0) = %f, want 0", got)
	}
}

func TestEarthCurvature_StrictlyIncreasing(t *testing.T) {
	prev := EarthCurvature(0)
	for d := 100.0; d <= 200000; d += 100 {
		cur := EarthCurvature(d)
		if cur <= prev {
			t.Fatalf("EarthCurvature(%f) = %f, not greater than %f", d, cur, prev)
		}
		prev = cur
	}
}

func TestEarthCurvature_TenKilometres(t *testing.T) {
	// 10 km: 1e8 / 12,742,000 ≈ 7.848 m
	got := EarthCurvature(10000)
	if math.Abs(got-7.848) > 0.001 {
		t.Errorf("EarthCurvature(10km) = %f, want ~7.848", got)
	}
}

func TestCurvatureDrop_VanishesAtEnds(t *testing.T) {
	if CurvatureDrop(50000, 0) != 0 || CurvatureDrop(50000, 1) != 0 {
		t.Error("curvature drop must vanish at both endpoints")
	}
	mid := CurvatureDrop(50000, 0.5)
	if math.Abs(mid-0.25*EarthCurvature(50000)) > 1e-9 {
		t.Errorf("mid drop = %f", mid)
	}
	if CurvatureDrop(50000, 0.25) != CurvatureDrop(50000, 0.75) {
		t.Error("curvature drop must be symmetric about the midpoint")
	}
}

func TestStepRatio(t *testing.T) {
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i, w := range want {
		if got := StepRatio(i, 5); got != w {
			t.Errorf("StepRatio(%d, 5) = %f, want %f", i, got, w)
		}
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(10, 20, 0.5); got != 15 {
		t.Errorf("Lerp = %f", got)
	}
	if got := Lerp(-3, 7, 0); got != -3 {
		t.Errorf("Lerp at 0 = %f", got)
	}
	if got := Lerp(-3, 7, 1); got != 7 {
		t.Errorf("Lerp at 1 = %f", got)
	}
}
