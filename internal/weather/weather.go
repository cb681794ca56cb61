// Package weather fetches current conditions for a coordinate and supplies
// the synthetic snapshot used when no provider is available.
package weather

import (
	"context"
	"errors"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
)

// ErrNotConfigured is returned by providers that lack credentials
var ErrNotConfigured = errors.New("weather provider not configured")

// Snapshot is the normalised current-conditions payload
type Snapshot struct {
	CloudFraction float64 `json:"cloudFraction"` // 0..1
	Temperature   float64 `json:"temperature"`   // Celsius with metric units
	Description   string  `json:"description"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection float64 `json:"windDirection"` // degrees
	Humidity      float64 `json:"humidity"`      // percent
	Pressure      float64 `json:"pressure"`      // hPa
	Icon          string  `json:"icon"`
}

// Provider fetches current weather
type Provider interface {
	// Name identifies the provider in logs and metrics
	Name() string

	Current(ctx context.Context, coord ephemeris.Coordinate) (Snapshot, error)
}

// FallbackSnapshot is served when the provider is unconfigured or failing
func FallbackSnapshot() Snapshot {
	return Snapshot{
		CloudFraction: 0.30,
		Temperature:   22,
		Description:   "partly cloudy",
		WindSpeed:     5.2,
		WindDirection: 180,
		Humidity:      65,
		Pressure:      1013,
		Icon:          "02d",
	}
}
