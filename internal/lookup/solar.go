package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
	"github.com/Nom-nom-hub/World-CSS/internal/ttlcache"
)

// SolarReport is the answer to a solar query. Reports are cached per
// quantized time window, so Instant is when the window's report was computed.
type SolarReport struct {
	ephemeris.Position

	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Phase     string    `json:"phase"`
	Progress  float64   `json:"progress"`
	Instant   time.Time `json:"instant"`
	// Timestamp is Instant in Unix milliseconds
	Timestamp int64 `json:"timestamp"`

	Sunrise   *time.Time `json:"sunrise,omitempty"`
	Sunset    *time.Time `json:"sunset,omitempty"`
	SolarNoon *time.Time `json:"solarNoon,omitempty"`

	// UTCOffsetMinutes is the longitude-based zone estimate LocalTime uses
	UTCOffsetMinutes int    `json:"utcOffsetMinutes"`
	LocalTime        string `json:"localTime"`
}

// Solar computes (or returns the cached) solar report for coord at instant.
// A zero instant means now.
func (s *Service) Solar(ctx context.Context, coord ephemeris.Coordinate, instant time.Time) (SolarReport, error) {
	if err := coord.Validate(); err != nil {
		return SolarReport{}, invalid(err)
	}
	if instant.IsZero() {
		instant = s.opts.Clock.Now()
	}
	instant = instant.UTC()

	key := ttlcache.SolarKey(coord.Latitude, coord.Longitude, instant, s.opts.SolarBucket)
	report, err := ttlcache.FetchJSON(ctx, s.cache, key, s.opts.SolarTTL,
		func(ctx context.Context) (SolarReport, bool, error) {
			report, err := buildSolarReport(coord, instant)
			return report, true, err
		})
	if err != nil {
		return SolarReport{}, fmt.Errorf("failed to compute solar position: %w", err)
	}
	return report, nil
}

func buildSolarReport(coord ephemeris.Coordinate, instant time.Time) (SolarReport, error) {
	pos, err := ephemeris.ComputePosition(coord, instant)
	if err != nil {
		return SolarReport{}, err
	}
	times, err := ephemeris.SunTimes(coord, instant)
	if err != nil {
		return SolarReport{}, err
	}

	phase, progress := theme.PhaseFor(pos.Elevation)

	return SolarReport{
		Position:         pos,
		Latitude:         coord.Latitude,
		Longitude:        coord.Longitude,
		Phase:            phase.String(),
		Progress:         progress,
		Instant:          instant,
		Timestamp:        instant.UnixMilli(),
		Sunrise:          optionalTime(times.Sunrise),
		Sunset:           optionalTime(times.Sunset),
		SolarNoon:        optionalTime(times.SolarNoon),
		UTCOffsetMinutes: ephemeris.EstimateUTCOffset(coord.Longitude),
		LocalTime:        instant.In(ephemeris.EstimatedZone(coord.Longitude)).Format(time.RFC3339),
	}, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
