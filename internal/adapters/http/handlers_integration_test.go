//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/sightline/internal/adapters/http"
	"github.com/samirrijal/sightline/internal/adapters/postgres"
	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/usecases"
	"github.com/samirrijal/sightline/internal/pkg/config"
)

// setupTestDB connects to the test database.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("sightline-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// setupTestDeps creates dependencies with the real raster store, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	profiles := usecases.NewProfileService(postgres.NewElevationSource(db), usecases.DefaultSamplingOptions())
	return &http.Dependencies{
		Profiles:       profiles,
		Sightlines:     usecases.NewSightlineService(profiles),
		Tiles:          usecases.NewTileService(postgres.NewTileRepo(db), nil),
		DB:             db,
		DefaultSamples: 10,
	}
}

// seedRaster inserts a constant-height 1°×1° raster with its upper left
// corner at (lon, lat) and returns its id.
func seedRaster(t *testing.T, db *postgres.DB, lon, lat, height float64) int64 {
	var id int64
	name := fmt.Sprintf("integration_%d.tif", time.Now().UnixNano())
	if err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO elevation_data (rast, filename, rast_date)
		VALUES (ST_AddBand(ST_MakeEmptyRaster(10, 10, $1, $2, 0.1, -0.1, 0, 0, 4326), '32BF'::text, $3, -9999), $4, now())
		RETURNING id
	`, lon, lat, height, name).Scan(&id); err != nil {
		t.Fatalf("seed raster: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM elevation_data WHERE id = $1`, id)
	})
	return id
}

func TestElevation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	seedRaster(t, db, 100, 10, 321)

	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/elevation?lon=100.5&lat=9.5", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var sample domain.ElevationSample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if sample.ElevationMeters != 321 {
		t.Errorf("expected 321, got %f", sample.ElevationMeters)
	}
}

func TestLineOfSight_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	seedRaster(t, db, 100, 10, 50)

	app := setupApp(setupTestDeps(t, db))

	// Flat 50 m terrain: a 100 m mast decays below it before the far end.
	resp, err := app.Test(httptest.NewRequest("GET",
		"/v1/elevation/line-of-sight?startLon=100.1&startLat=9.9&endLon=100.9&endLat=9.1&radarHeight=100&samples=5", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res http.LineOfSightResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.Blocked {
		t.Error("expected blocked")
	}
}

func TestProfile_Integration_NoCoverage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET",
		"/v1/elevation/profile?startLon=-170&startLat=-80&endLon=-169&endLat=-80&samples=3", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetTile_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	id := seedRaster(t, db, 100, 10, 1)

	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/v1/tiles/%d", id), nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var tile domain.Tile
	if err := json.NewDecoder(resp.Body).Decode(&tile); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tile.ID != id || tile.Bounds.MinLon != 100 || tile.Bounds.MaxLat != 10 {
		t.Errorf("unexpected tile %+v", tile)
	}
}
