package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
	"github.com/Nom-nom-hub/World-CSS/internal/geolocate"
	"github.com/Nom-nom-hub/World-CSS/internal/lookup"
	"github.com/Nom-nom-hub/World-CSS/internal/metrics"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
	"github.com/Nom-nom-hub/World-CSS/internal/weather"
	"github.com/Nom-nom-hub/World-CSS/pkg/health"
)

// fakeResolver records the last arguments it saw
type fakeResolver struct {
	solarCoord   ephemeris.Coordinate
	solarInstant time.Time
	locateAddr   string
	themeReq     lookup.ThemeRequest
	err          error
}

func (f *fakeResolver) Solar(ctx context.Context, coord ephemeris.Coordinate, instant time.Time) (lookup.SolarReport, error) {
	f.solarCoord, f.solarInstant = coord, instant
	if f.err != nil {
		return lookup.SolarReport{}, f.err
	}
	return lookup.SolarReport{Position: ephemeris.Position{Elevation: 42, Azimuth: 180}, Phase: "noon"}, nil
}

func (f *fakeResolver) Weather(ctx context.Context, coord ephemeris.Coordinate) (weather.Snapshot, error) {
	if f.err != nil {
		return weather.Snapshot{}, f.err
	}
	return weather.FallbackSnapshot(), nil
}

func (f *fakeResolver) Locate(ctx context.Context, addr string) (geolocate.Location, error) {
	f.locateAddr = addr
	if f.err != nil {
		return geolocate.Location{}, f.err
	}
	return geolocate.Location{Latitude: 48.85, Longitude: 2.35, City: "Paris", Country: "FR"}, nil
}

func (f *fakeResolver) Theme(ctx context.Context, req lookup.ThemeRequest) (theme.Vector, error) {
	f.themeReq = req
	if f.err != nil {
		return theme.Vector{}, f.err
	}
	if req.Mode == "light" || req.Mode == "dark" {
		return theme.Manual(req.Mode)
	}
	return theme.Vector{BackgroundHue: 210, BackgroundSaturation: 70, BackgroundLightness: 70, TextColor: "#000000", Phase: "noon"}, nil
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, resolver lookup.Resolver) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	checker := health.NewChecker(testLogger())
	checker.Register("cache", func(ctx context.Context) error { return nil })

	srv := NewServer(resolver, Options{Checker: checker, Gatherer: m.Registry(), Recorder: m}, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func get(t *testing.T, url string, headers map[string]string) (*http.Response, response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestSunEndpoint(t *testing.T) {
	resolver := &fakeResolver{}
	ts, _ := newTestServer(t, resolver)

	resp, body := get(t, ts.URL+"/api/sun?lat=40.7128&lng=-74.006&time=2024-06-21T16:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &report))
	assert.Equal(t, 42.0, report["elevation"])
	assert.Equal(t, "noon", report["phase"])

	assert.Equal(t, ephemeris.Coordinate{Latitude: 40.7128, Longitude: -74.006}, resolver.solarCoord)
	assert.True(t, resolver.solarInstant.Equal(time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC)))
}

func TestSunEndpointAcceptsLonAndMilliseconds(t *testing.T) {
	resolver := &fakeResolver{}
	ts, _ := newTestServer(t, resolver)

	resp, _ := get(t, ts.URL+"/api/sun?lat=1&lon=2&time=1718985600000", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, resolver.solarCoord.Longitude)
	assert.Equal(t, int64(1718985600), resolver.solarInstant.Unix())
}

func TestBadRequests(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{})

	tests := []struct {
		name     string
		path     string
		contains string
	}{
		{"sun_missing_lng", "/api/sun?lat=1", "Latitude and longitude required"},
		{"sun_missing_both", "/api/sun", "Latitude and longitude required"},
		{"sun_not_a_number", "/api/sun?lat=north&lng=2", "is not a number"},
		{"sun_out_of_range", "/api/sun?lat=95&lng=2", "Invalid coordinate"},
		{"sun_bad_time", "/api/sun?lat=1&lng=2&time=yesterday", "RFC 3339"},
		{"weather_missing", "/api/weather?lng=2", "Latitude and longitude required"},
		{"theme_half_coordinate", "/api/theme?lat=1", "Latitude and longitude required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, body.Success)
			assert.Contains(t, body.Error, tt.contains)
		})
	}
}

func TestInvalidInputFromResolverIs400(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{err: errors.Join(lookup.ErrInvalidInput, theme.ErrUnknownMode)})

	resp, body := get(t, ts.URL+"/api/theme?mode=sepia", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestInternalErrorsAre500(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{err: errors.New("store exploded")})

	resp, body := get(t, ts.URL+"/api/weather?lat=1&lng=2", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to get weather data", body.Error)
	assert.NotContains(t, body.Error, "exploded")
}

func TestWeatherEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{})

	resp, body := get(t, ts.URL+"/api/weather?lat=1&lng=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap weather.Snapshot
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	assert.Equal(t, weather.FallbackSnapshot(), snap)
}

func TestLocateEndpointUsesForwardedAddress(t *testing.T) {
	resolver := &fakeResolver{}
	ts, _ := newTestServer(t, resolver)

	resp, body := get(t, ts.URL+"/api/locate", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "203.0.113.5", resolver.locateAddr)

	var loc geolocate.Location
	require.NoError(t, json.Unmarshal(body.Data, &loc))
	assert.Equal(t, "Paris", loc.City)
}

func TestThemeEndpoint(t *testing.T) {
	resolver := &fakeResolver{}
	ts, _ := newTestServer(t, resolver)

	resp, body := get(t, ts.URL+"/api/theme?lat=10&lng=20", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &v))
	for _, field := range []string{"backgroundHue", "backgroundSaturation", "backgroundLightness", "textColor", "textSecondary", "accentColor", "overlayColor", "overlayOpacity", "isNight"} {
		assert.Contains(t, v, field)
	}
	assert.Equal(t, ephemeris.Coordinate{Latitude: 10, Longitude: 20}, resolver.themeReq.Coordinate)
}

func TestThemeEndpointGeolocatesWithoutCoordinates(t *testing.T) {
	resolver := &fakeResolver{}
	ts, _ := newTestServer(t, resolver)

	resp, _ := get(t, ts.URL+"/api/theme", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ephemeris.Coordinate{Latitude: 48.85, Longitude: 2.35}, resolver.themeReq.Coordinate)
	assert.Equal(t, "127.0.0.1", resolver.locateAddr)
}

func TestThemeEndpointManualMode(t *testing.T) {
	resolver := &fakeResolver{}
	ts, _ := newTestServer(t, resolver)

	resp, body := get(t, ts.URL+"/api/theme?mode=dark", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resolver.locateAddr, "manual modes do not geolocate")

	var v theme.Vector
	require.NoError(t, json.Unmarshal(body.Data, &v))
	assert.True(t, v.IsNight)
}

func TestThemeCSSEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{})

	resp, err := http.Get(ts.URL + "/api/theme.css?lat=10&lng=20")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/css; charset=utf-8", resp.Header.Get("Content-Type"))

	css, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(css), ":root {\n"))
	assert.Contains(t, string(css), "  --background-hue: 210;\n")
	assert.Contains(t, string(css), "  --worldcss-phase: noon;\n")
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/sun", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{})

	resp, _ := get(t, ts.URL+"/api/weather?lat=1&lng=2", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health/detailed")
	require.NoError(t, err)
	var detailed health.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detailed))
	resp.Body.Close()
	assert.Equal(t, "healthy", detailed.Status)
	assert.Equal(t, "connected", detailed.Services["cache"])

	// Generate one request so the counter exists
	get(t, ts.URL+"/api/weather?lat=1&lng=2", nil)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(text), `worldcss_http_requests_total{method="GET",path="/api/weather",status_code="200"} 1`)
}
