package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/sightline/internal/adapters/http"
	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/core/ports"
	"github.com/samirrijal/sightline/internal/core/usecases"
)

// ---- Mocks ----

type mockTileRepo struct {
	listFn    func(ctx context.Context, offset, limit int) ([]domain.Tile, int, error)
	getByIDFn func(ctx context.Context, id int64) (*domain.Tile, error)
}

func (m *mockTileRepo) List(ctx context.Context, offset, limit int) ([]domain.Tile, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}
func (m *mockTileRepo) GetByID(ctx context.Context, id int64) (*domain.Tile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("tile %d: %w", id, domain.ErrNotFound)
}
func (m *mockTileRepo) Covering(ctx context.Context, p domain.GeoPoint) ([]domain.Tile, error) {
	return []domain.Tile{{ID: 1, Filename: "bizkaia.tif"}}, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	requests []domain.VisibilityRequest
	err      error
}

func (m *mockPublisher) PublishVisibilityRequest(ctx context.Context, req *domain.VisibilityRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, *req)
	return m.err
}
func (m *mockPublisher) PublishVisibilityResult(ctx context.Context, res *domain.VisibilityResult) error {
	return nil
}
func (m *mockPublisher) PublishCoverageReport(ctx context.Context, r *domain.CoverageReport) error {
	return nil
}

// terrainByLon returns terrain[i] at lon = i*0.001.
func terrainByLon(terrain ...float64) ports.ElevationSource {
	return ports.ElevationSourceFunc(func(ctx context.Context, p domain.GeoPoint) (float64, error) {
		i := int(math.Round(p.Lon / 0.001))
		if i < 0 || i >= len(terrain) {
			return 0, domain.ErrNoCoverage
		}
		return terrain[i], nil
	})
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func withSource(src ports.ElevationSource) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Profiles = usecases.NewProfileService(src, usecases.SamplingOptions{LookupTimeout: time.Second})
		d.Sightlines = usecases.NewSightlineService(d.Profiles)
	}
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Tiles:          usecases.NewTileService(&mockTileRepo{}, nil),
		DefaultSamples: 10,
	}
	withSource(terrainByLon(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0))(d)
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func get(t *testing.T, app *fiber.App, url string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return apiErr.Code
}

// ---- Elevation ----

func TestElevation_Success(t *testing.T) {
	src := ports.ElevationSourceFunc(func(ctx context.Context, p domain.GeoPoint) (float64, error) {
		return 512.5, nil
	})
	app := setupApp(makeDeps(withSource(src)))

	status, body := get(t, app, "/v1/elevation?lon=-2.93&lat=43.26")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var sample domain.ElevationSample
	if err := json.Unmarshal(body, &sample); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sample.ElevationMeters != 512.5 || sample.Point.Lon != -2.93 {
		t.Errorf("unexpected sample %+v", sample)
	}
}

func TestElevation_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	tests := []string{
		"/v1/elevation",
		"/v1/elevation?lon=1",
		"/v1/elevation?lon=abc&lat=1",
		"/v1/elevation?lon=1&lat=95",
	}
	for _, url := range tests {
		status, body := get(t, app, url)
		if status != 400 {
			t.Errorf("%s: expected 400, got %d", url, status)
			continue
		}
		if code := errorCode(t, body); code != "bad_request" {
			t.Errorf("%s: expected bad_request, got %s", url, code)
		}
	}
}

func TestElevation_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNoCoverage, 404, "no_coverage"},
		{domain.ErrUnavailable, 503, "unavailable"},
		{fmt.Errorf("boom"), 500, "internal_error"},
	}
	for _, tt := range tests {
		src := ports.ElevationSourceFunc(func(ctx context.Context, p domain.GeoPoint) (float64, error) {
			return 0, tt.err
		})
		app := setupApp(makeDeps(withSource(src)))

		status, body := get(t, app, "/v1/elevation?lon=0&lat=0")
		if status != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, status)
			continue
		}
		if code := errorCode(t, body); code != tt.code {
			t.Errorf("%v: expected %s, got %s", tt.err, tt.code, code)
		}
	}
}

// ---- Profile ----

func TestProfile_DefaultSamples(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := get(t, app, "/v1/elevation/profile?startLon=0&startLat=0&endLon=0.009&endLat=0")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var profile domain.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.Len() != 10 {
		t.Errorf("expected 10 samples, got %d", profile.Len())
	}
	if profile.Samples[0].Point.Lon != 0 || profile.Samples[9].Point.Lon != 0.009 {
		t.Errorf("endpoints not preserved: %v .. %v", profile.Samples[0].Point, profile.Samples[9].Point)
	}
}

func TestProfile_SingleSampleRejected(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := get(t, app, "/v1/elevation/profile?startLon=0&startLat=0&endLon=0.001&endLat=0&samples=1")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if code := errorCode(t, body); code != "bad_request" {
		t.Errorf("expected bad_request, got %s", code)
	}
}

// ---- Line of sight ----

func TestLineOfSight_Blocked(t *testing.T) {
	app := setupApp(makeDeps(withSource(terrainByLon(0, 200, 0))))

	status, body := get(t, app, "/v1/elevation/line-of-sight?startLon=0&startLat=0&endLon=0.002&endLat=0&radarHeight=100&samples=3")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res handler.LineOfSightResponse
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Blocked || res.Policy != domain.PolicyRadarMastDecay || res.Samples != 3 {
		t.Errorf("unexpected response %+v", res)
	}
}

func TestLineOfSight_MissingRadarHeight(t *testing.T) {
	app := setupApp(makeDeps())

	status, _ := get(t, app, "/v1/elevation/line-of-sight?startLon=0&startLat=0&endLon=0.002&endLat=0")
	if status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

// ---- Visibility ----

func TestVisibility_Clear(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := get(t, app, "/v1/elevation/visibility?fromLon=0&fromLat=0&fromHeight=30&toLon=0.01&toLat=0&toHeight=30")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res handler.VisibilityResponse
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Visible {
		t.Error("expected visible")
	}
	if res.Samples != 13 {
		t.Errorf("expected 13 dense samples, got %d", res.Samples)
	}
	if math.Abs(res.DistanceKm-1.112) > 0.01 {
		t.Errorf("expected ≈1.112 km, got %f", res.DistanceKm)
	}
}

func TestVisibility_BlockedByHill(t *testing.T) {
	app := setupApp(makeDeps(withSource(terrainByLon(0, 0, 0, 0, 0, 900, 0, 0, 0, 0, 0))))

	status, body := get(t, app, "/v1/elevation/visibility?fromLon=0&fromLat=0&fromHeight=30&toLon=0.01&toLat=0&toHeight=30")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"visible":false`) {
		t.Errorf("expected not visible, got %s", body)
	}
}

// ---- Legacy aliases ----

func TestLegacyElevation_BareValueAndDeprecation(t *testing.T) {
	src := ports.ElevationSourceFunc(func(ctx context.Context, p domain.GeoPoint) (float64, error) {
		return 42, nil
	})
	app := setupApp(makeDeps(withSource(src)))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/elevation?lon=1&lat=1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := strings.TrimSpace(string(readBody(t, resp.Body))); body != "42" {
		t.Errorf("expected bare 42, got %q", body)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if !strings.Contains(resp.Header.Get("Link"), "/v1/elevation") {
		t.Errorf("expected successor link, got %q", resp.Header.Get("Link"))
	}
}

func TestLegacyLineOfSight_BareBoolean(t *testing.T) {
	app := setupApp(makeDeps(withSource(terrainByLon(0, 200, 0))))

	status, body := get(t, app, "/api/elevation/line-of-sight?startLon=0&startLat=0&endLon=0.002&endLat=0&radarHeight=100&samples=3")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if strings.TrimSpace(string(body)) != "true" {
		t.Errorf("expected true, got %s", body)
	}
}

func TestLegacyProfile_BareList(t *testing.T) {
	app := setupApp(makeDeps(withSource(terrainByLon(5, 6, 7))))

	status, body := get(t, app, "/api/elevation/profile?startLon=0&startLat=0&endLon=0.002&endLat=0&samples=3")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var elevs []float64
	if err := json.Unmarshal(body, &elevs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(elevs) != 3 || elevs[0] != 5 || elevs[1] != 6 || elevs[2] != 7 {
		t.Errorf("unexpected profile %v", elevs)
	}
}

// ---- Tiles ----

func TestListTiles_Pagination(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tiles = usecases.NewTileService(&mockTileRepo{
			listFn: func(ctx context.Context, offset, limit int) ([]domain.Tile, int, error) {
				return []domain.Tile{{ID: int64(offset + 1)}, {ID: int64(offset + 2)}}, 5, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/tiles?offset=2&limit=2", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Tile      `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 2 || result.Data[0].ID != 3 {
		t.Errorf("unexpected page %+v", result.Data)
	}
	if result.Pagination.Total != 5 || result.Pagination.Offset != 2 {
		t.Errorf("unexpected pagination %+v", result.Pagination)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="prev"`) {
		t.Errorf("expected prev and next links, got %q", link)
	}
}

func TestGetTile_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := get(t, app, "/v1/tiles/99")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if code := errorCode(t, body); code != "not_found" {
		t.Errorf("expected not_found, got %s", code)
	}
}

func TestGetTile_BadID(t *testing.T) {
	app := setupApp(makeDeps())

	if status, _ := get(t, app, "/v1/tiles/abc"); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestCoveringTiles(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := get(t, app, "/v1/tiles/covering?lon=-2.9&lat=43.2")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), "bizkaia.tif") {
		t.Errorf("expected covering tile, got %s", body)
	}
}

// ---- Queued requests ----

func postJSON(t *testing.T, app *fiber.App, url, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

func TestEnqueueVisibility_Accepted(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.Publisher = pub }))

	status, body := postJSON(t, app, "/v1/visibility/requests",
		`{"radar_mast":{"start":{"lon":0,"lat":0},"end":{"lon":0.01,"lat":0},"radar_height_m":100,"samples":10}}`)
	if status != 202 {
		t.Fatalf("expected 202, got %d: %s", status, body)
	}

	var res map[string]string
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res["id"] == "" || res["policy"] != domain.PolicyRadarMastDecay {
		t.Errorf("unexpected response %v", res)
	}
	if len(pub.requests) != 1 || pub.requests[0].ID != res["id"] {
		t.Errorf("expected one published request with id %s, got %+v", res["id"], pub.requests)
	}
}

func TestEnqueueVisibility_Invalid(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.Publisher = pub }))

	bodies := []string{
		`not json`,
		`{}`,
		`{"radar_mast":{"start":{"lon":0,"lat":0},"end":{"lon":1,"lat":0},"radar_height_m":100,"samples":1}}`,
		`{"curvature":{"from":{"point":{"lon":200,"lat":0}},"to":{"point":{"lon":0,"lat":0}}}}`,
	}
	for _, b := range bodies {
		if status, _ := postJSON(t, app, "/v1/visibility/requests", b); status != 400 {
			t.Errorf("%s: expected 400, got %d", b, status)
		}
	}
	if len(pub.requests) != 0 {
		t.Errorf("expected nothing published, got %d", len(pub.requests))
	}
}

func TestEnqueueVisibility_NoQueue(t *testing.T) {
	app := setupApp(makeDeps())

	status, _ := postJSON(t, app, "/v1/visibility/requests",
		`{"curvature":{"from":{"point":{"lon":0,"lat":0},"height_m":10},"to":{"point":{"lon":0.01,"lat":0},"height_m":10}}}`)
	if status != 503 {
		t.Errorf("expected 503, got %d", status)
	}
}

// ---- Health ----

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	if status, _ := get(t, app, "/v1/health"); status != 200 {
		t.Errorf("expected 200, got %d", status)
	}
}

func TestReady(t *testing.T) {
	app := setupApp(makeDeps())
	if status, _ := get(t, app, "/v1/ready"); status != 503 {
		t.Errorf("without database: expected 503, got %d", status)
	}

	app = setupApp(makeDeps(func(d *handler.Dependencies) { d.DB = stubPinger{} }))
	if status, body := get(t, app, "/v1/ready"); status != 200 {
		t.Errorf("with database: expected 200, got %d: %s", status, body)
	}

	app = setupApp(makeDeps(func(d *handler.Dependencies) {
		d.DB = stubPinger{}
		d.Cache = stubPinger{err: fmt.Errorf("connection refused")}
	}))
	if status, _ := get(t, app, "/v1/ready"); status != 503 {
		t.Errorf("with failing cache: expected 503, got %d", status)
	}
}

// ---- GraphQL ----

func TestGraphQL_Elevation(t *testing.T) {
	src := ports.ElevationSourceFunc(func(ctx context.Context, p domain.GeoPoint) (float64, error) {
		return 77, nil
	})
	app := setupApp(makeDeps(withSource(src)))

	status, body := postJSON(t, app, "/graphql", `{"query":"{ elevation(lon: -2.9, lat: 43.2) }"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"elevation":77`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestGraphQL_LineOfSight(t *testing.T) {
	app := setupApp(makeDeps(withSource(terrainByLon(0, 200, 0))))

	q := `{"query":"{ lineOfSightBlocked(startLon: 0, startLat: 0, endLon: 0.002, endLat: 0, radarHeight: 100, samples: 3) }"}`
	status, body := postJSON(t, app, "/graphql", q)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"lineOfSightBlocked":true`) {
		t.Errorf("unexpected body %s", body)
	}
}
