package lookup

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
	"github.com/Nom-nom-hub/World-CSS/internal/geolocate"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
	"github.com/Nom-nom-hub/World-CSS/internal/ttlcache"
	"github.com/Nom-nom-hub/World-CSS/internal/weather"
)

var (
	nyc      = ephemeris.Coordinate{Latitude: 40.7128, Longitude: -74.006}
	solstice = time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC)
)

type fakeWeather struct {
	mu    sync.Mutex
	calls int
	snap  weather.Snapshot
	err   error
}

func (f *fakeWeather) Name() string { return "fake-weather" }

func (f *fakeWeather) Current(ctx context.Context, coord ephemeris.Coordinate) (weather.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snap, f.err
}

type fakeLocator struct {
	calls int
	loc   geolocate.Location
	err   error
}

func (f *fakeLocator) Name() string { return "fake-geo" }

func (f *fakeLocator) Locate(ctx context.Context, addr string) (geolocate.Location, error) {
	f.calls++
	return f.loc, f.err
}

type countingRecorder struct {
	requests  map[string]int
	fallbacks map[string]int
	themes    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{requests: map[string]int{}, fallbacks: map[string]int{}, themes: map[string]int{}}
}

func (r *countingRecorder) UpstreamRequest(provider string, err error) { r.requests[provider]++ }
func (r *countingRecorder) UpstreamFallback(provider string)           { r.fallbacks[provider]++ }
func (r *countingRecorder) ThemeResolved(phase string)                 { r.themes[phase]++ }

type fixture struct {
	svc     *Service
	cache   *ttlcache.Cache
	clock   *ttlcache.ManualClock
	weather *fakeWeather
	locator *fakeLocator
	rec     *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	clock := ttlcache.NewManualClock(solstice)
	cache := ttlcache.New(ttlcache.NewMemoryStore(), logger, ttlcache.Options{Clock: clock})

	f := &fixture{
		cache:   cache,
		clock:   clock,
		weather: &fakeWeather{snap: weather.Snapshot{CloudFraction: 0.1, Description: "few clouds", Temperature: 25}},
		locator: &fakeLocator{loc: geolocate.Location{Latitude: 51.5, Longitude: -0.12, City: "London", Country: "GB", Timezone: "Europe/London"}},
		rec:     newCountingRecorder(),
	}
	f.svc = NewService(cache, f.weather, f.locator, theme.DefaultConfig(), Options{Clock: clock, Recorder: f.rec}, logger)
	return f
}

func TestSolar(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Solar(context.Background(), nyc, solstice)
	require.NoError(t, err)

	assert.InDelta(t, 68.87, report.Elevation, 0.1)
	assert.InDelta(t, 140.4, report.Azimuth, 0.3)
	assert.Equal(t, "sunset", report.Phase)
	assert.True(t, report.Instant.Equal(solstice))
	assert.Equal(t, solstice.UnixMilli(), report.Timestamp)
	assert.Equal(t, -300, report.UTCOffsetMinutes)
	assert.Equal(t, "2024-06-21T11:00:00-05:00", report.LocalTime)
	require.NotNil(t, report.Sunrise)
	require.NotNil(t, report.Sunset)
	assert.True(t, report.Sunrise.Before(solstice))
	assert.True(t, report.Sunset.After(solstice))
}

func TestSolarDefaultsToNow(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Solar(context.Background(), nyc, time.Time{})
	require.NoError(t, err)
	assert.True(t, report.Instant.Equal(solstice))
}

func TestSolarIsCachedPerWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Solar(ctx, nyc, solstice)
	require.NoError(t, err)

	// 90 seconds later falls in the same five minute window
	f.clock.Advance(90 * time.Second)
	second, err := f.svc.Solar(ctx, nyc, solstice.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, second.Instant.Equal(first.Instant), "served from cache")
	assert.Equal(t, first.Elevation, second.Elevation)

	third, err := f.svc.Solar(ctx, nyc, solstice.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, third.Instant.Equal(solstice.Add(5*time.Minute)))
}

func TestSolarRejectsInvalidCoordinates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Solar(context.Background(), ephemeris.Coordinate{Latitude: 91}, solstice)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ephemeris.ErrInvalidCoordinate)

	_, ok := f.cache.Get(context.Background(), ttlcache.SolarKey(91, 0, solstice, 5*time.Minute))
	assert.False(t, ok)
}

func TestWeatherCachesProviderResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := f.svc.Weather(ctx, nyc)
		require.NoError(t, err)
		assert.Equal(t, "few clouds", snap.Description)
	}
	assert.Equal(t, 1, f.weather.calls)
	assert.Equal(t, 1, f.rec.requests["fake-weather"])

	f.clock.Advance(30 * time.Minute)
	_, err := f.svc.Weather(ctx, nyc)
	require.NoError(t, err)
	assert.Equal(t, 2, f.weather.calls)
}

func TestWeatherFallbackIsNotCached(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"provider_down", errors.New("connection refused")},
		{"not_configured", weather.ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.weather.err = tt.err
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				snap, err := f.svc.Weather(ctx, nyc)
				require.NoError(t, err)
				assert.Equal(t, weather.FallbackSnapshot(), snap)
			}
			assert.Equal(t, 2, f.weather.calls)
			assert.Equal(t, 2, f.rec.fallbacks["fake-weather"])
		})
	}
}

func TestWeatherWithoutProvider(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.cache, nil, nil, theme.DefaultConfig(), Options{Clock: f.clock}, nil)

	snap, err := svc.Weather(context.Background(), nyc)
	require.NoError(t, err)
	assert.Equal(t, weather.FallbackSnapshot(), snap)

	loc, err := svc.Locate(context.Background(), "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, geolocate.FallbackLocation(), loc)
}

func TestWeatherRejectsInvalidCoordinates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Weather(context.Background(), ephemeris.Coordinate{Latitude: 10, Longitude: 200})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, f.weather.calls)
}

func TestLocate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		loc, err := f.svc.Locate(ctx, "198.51.100.4")
		require.NoError(t, err)
		assert.Equal(t, "London", loc.City)
	}
	assert.Equal(t, 1, f.locator.calls)
}

func TestLocateFallback(t *testing.T) {
	tests := []struct {
		name string
		loc  geolocate.Location
		err  error
	}{
		{"provider_error", geolocate.Location{}, errors.New("private range")},
		{"out_of_range_answer", geolocate.Location{Latitude: 123}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.locator.loc, f.locator.err = tt.loc, tt.err

			for i := 0; i < 2; i++ {
				loc, err := f.svc.Locate(context.Background(), "10.0.0.1")
				require.NoError(t, err)
				assert.Equal(t, geolocate.FallbackLocation(), loc)
			}
			assert.Equal(t, 2, f.locator.calls, "fallbacks are not cached")
			assert.Equal(t, 2, f.rec.fallbacks["fake-geo"])
		})
	}
}

func TestThemeAuto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.Theme(ctx, ThemeRequest{Coordinate: nyc, Instant: solstice})
	require.NoError(t, err)

	report, err := f.svc.Solar(ctx, nyc, solstice)
	require.NoError(t, err)
	want := theme.Resolve(report.Position, theme.Weather{CloudFraction: 0.1, Description: "few clouds"}, theme.DefaultConfig())

	assert.Equal(t, want, v)
	assert.Equal(t, "sunset", v.Phase)
	assert.False(t, v.IsNight)
	assert.Equal(t, 1, f.rec.themes["sunset"])
}

func TestThemeUsesCloudCover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bright, err := f.svc.Theme(ctx, ThemeRequest{Coordinate: nyc, Instant: solstice, Mode: "auto"})
	require.NoError(t, err)

	f.weather.snap.CloudFraction = 0.9
	f.clock.Advance(time.Hour)
	cloudy, err := f.svc.Theme(ctx, ThemeRequest{Coordinate: nyc, Instant: solstice})
	require.NoError(t, err)

	assert.Less(t, cloudy.BackgroundLightness, bright.BackgroundLightness)
	assert.Less(t, cloudy.BackgroundSaturation, bright.BackgroundSaturation)
}

func TestThemeManualModes(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Theme(context.Background(), ThemeRequest{Mode: "Dark"})
	require.NoError(t, err)
	assert.True(t, v.IsNight)
	assert.Equal(t, "dark", v.Phase)
	assert.Equal(t, 0, f.weather.calls, "manual modes skip lookups")

	_, err = f.svc.Theme(context.Background(), ThemeRequest{Mode: "sepia"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, theme.ErrUnknownMode)
}

func TestThemeRejectsInvalidCoordinates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Theme(context.Background(), ThemeRequest{Coordinate: ephemeris.Coordinate{Latitude: -95}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
