// Package lookup answers solar, weather, location and theme queries, caching
// upstream results and substituting fallbacks when providers fail.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
	"github.com/Nom-nom-hub/World-CSS/internal/geolocate"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
	"github.com/Nom-nom-hub/World-CSS/internal/ttlcache"
	"github.com/Nom-nom-hub/World-CSS/internal/weather"
)

// ErrInvalidInput marks errors caused by the request itself
var ErrInvalidInput = errors.New("invalid input")

// Resolver is what the HTTP adapter and the MQTT agent depend on
type Resolver interface {
	Solar(ctx context.Context, coord ephemeris.Coordinate, instant time.Time) (SolarReport, error)
	Weather(ctx context.Context, coord ephemeris.Coordinate) (weather.Snapshot, error)
	Locate(ctx context.Context, addr string) (geolocate.Location, error)
	Theme(ctx context.Context, req ThemeRequest) (theme.Vector, error)
}

// Recorder receives upstream and theme events
type Recorder interface {
	UpstreamRequest(provider string, err error)
	UpstreamFallback(provider string)
	ThemeResolved(phase string)
}

type nopRecorder struct{}

func (nopRecorder) UpstreamRequest(string, error) {}
func (nopRecorder) UpstreamFallback(string)       {}
func (nopRecorder) ThemeResolved(string)          {}

// Options holds per-kind cache lifetimes
type Options struct {
	SolarTTL    time.Duration
	WeatherTTL  time.Duration
	LocationTTL time.Duration
	// SolarBucket is the width of the time window solar keys are quantized to
	SolarBucket time.Duration
	Clock       ttlcache.Clock
	Recorder    Recorder
}

func (o *Options) setDefaults() {
	if o.SolarTTL <= 0 {
		o.SolarTTL = 5 * time.Minute
	}
	if o.WeatherTTL <= 0 {
		o.WeatherTTL = 30 * time.Minute
	}
	if o.LocationTTL <= 0 {
		o.LocationTTL = time.Hour
	}
	if o.SolarBucket <= 0 {
		o.SolarBucket = 5 * time.Minute
	}
	if o.Clock == nil {
		o.Clock = ttlcache.SystemClock{}
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
}

// Service implements Resolver
type Service struct {
	cache    *ttlcache.Cache
	weather  weather.Provider
	locator  geolocate.Locator
	theme    theme.Config
	opts     Options
	recorder Recorder
	logger   *slog.Logger
}

var _ Resolver = (*Service)(nil)

// NewService wires the orchestrator. A nil weather provider or locator means
// every lookup of that kind is served from the fallback.
func NewService(cache *ttlcache.Cache, wp weather.Provider, locator geolocate.Locator, cfg theme.Config, opts Options, logger *slog.Logger) *Service {
	opts.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cache:    cache,
		weather:  wp,
		locator:  locator,
		theme:    cfg,
		opts:     opts,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// Weather returns current conditions at coord, or the fallback snapshot when
// the provider is missing or failing. Fallbacks are never cached.
func (s *Service) Weather(ctx context.Context, coord ephemeris.Coordinate) (weather.Snapshot, error) {
	if err := coord.Validate(); err != nil {
		return weather.Snapshot{}, invalid(err)
	}

	key := ttlcache.WeatherKey(coord.Latitude, coord.Longitude)
	snap, err := ttlcache.FetchJSON(ctx, s.cache, key, s.opts.WeatherTTL,
		func(ctx context.Context) (weather.Snapshot, bool, error) {
			if s.weather == nil {
				s.recorder.UpstreamFallback("weather")
				return weather.FallbackSnapshot(), false, nil
			}

			snap, err := s.weather.Current(ctx, coord)
			if errors.Is(err, weather.ErrNotConfigured) {
				s.logger.Info("Weather provider not configured, using fallback", "provider", s.weather.Name())
				s.recorder.UpstreamFallback(s.weather.Name())
				return weather.FallbackSnapshot(), false, nil
			}
			s.recorder.UpstreamRequest(s.weather.Name(), err)
			if err != nil {
				s.logger.Warn("Weather lookup failed, using fallback",
					"provider", s.weather.Name(),
					"latitude", coord.Latitude,
					"longitude", coord.Longitude,
					"error", err)
				s.recorder.UpstreamFallback(s.weather.Name())
				return weather.FallbackSnapshot(), false, nil
			}
			return snap, true, nil
		})
	if err != nil {
		return weather.Snapshot{}, fmt.Errorf("failed to look up weather: %w", err)
	}
	return snap, nil
}

// Locate geolocates a client address, falling back to the default location
func (s *Service) Locate(ctx context.Context, addr string) (geolocate.Location, error) {
	key := ttlcache.LocateKey(addr)
	loc, err := ttlcache.FetchJSON(ctx, s.cache, key, s.opts.LocationTTL,
		func(ctx context.Context) (geolocate.Location, bool, error) {
			if s.locator == nil {
				s.recorder.UpstreamFallback("geolocate")
				return geolocate.FallbackLocation(), false, nil
			}

			loc, err := s.locator.Locate(ctx, addr)
			s.recorder.UpstreamRequest(s.locator.Name(), err)
			if err == nil {
				err = ephemeris.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}.Validate()
			}
			if err != nil {
				s.logger.Warn("Geolocation failed, using fallback", "provider", s.locator.Name(), "error", err)
				s.recorder.UpstreamFallback(s.locator.Name())
				return geolocate.FallbackLocation(), false, nil
			}
			return loc, true, nil
		})
	if err != nil {
		return geolocate.Location{}, fmt.Errorf("failed to locate client: %w", err)
	}
	return loc, nil
}
