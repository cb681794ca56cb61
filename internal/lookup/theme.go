package lookup

import (
	"context"
	"strings"
	"time"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
)

// ThemeRequest asks for the theme at a coordinate. Mode is auto, light or
// dark; empty means auto.
type ThemeRequest struct {
	Coordinate ephemeris.Coordinate
	Instant    time.Time
	Mode       string
}

// Theme resolves the theme vector. Manual modes skip the solar and weather
// lookups entirely.
func (s *Service) Theme(ctx context.Context, req ThemeRequest) (theme.Vector, error) {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != "" && mode != theme.ModeAuto {
		v, err := theme.Manual(mode)
		if err != nil {
			return theme.Vector{}, invalid(err)
		}
		s.recorder.ThemeResolved(v.Phase)
		return v, nil
	}

	report, err := s.Solar(ctx, req.Coordinate, req.Instant)
	if err != nil {
		return theme.Vector{}, err
	}
	snap, err := s.Weather(ctx, req.Coordinate)
	if err != nil {
		return theme.Vector{}, err
	}

	v := theme.Resolve(report.Position, theme.Weather{
		CloudFraction: snap.CloudFraction,
		Description:   snap.Description,
	}, s.theme)

	s.logger.Debug("Resolved theme",
		"latitude", req.Coordinate.Latitude,
		"longitude", req.Coordinate.Longitude,
		"phase", v.Phase,
		"progress", v.Progress)
	s.recorder.ThemeResolved(v.Phase)

	return v, nil
}
