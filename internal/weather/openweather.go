package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
)

const (
	DefaultOpenWeatherEndpoint = "https://api.openweathermap.org/data/2.5/weather"
	DefaultRequestTimeout      = 10 * time.Second
	userAgent                  = "World-CSS"
)

// OpenWeatherConfig configures an OpenWeatherClient
type OpenWeatherConfig struct {
	APIKey   string
	Endpoint string
	Units    string // metric, imperial or standard
	Timeout  time.Duration
}

// openWeatherResponse is the subset of the current-weather payload we read
type openWeatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
}

// OpenWeatherClient reads current conditions from OpenWeatherMap
type OpenWeatherClient struct {
	cfg        OpenWeatherConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenWeatherClient creates a client. An empty API key is allowed; every
// call then fails with ErrNotConfigured.
func NewOpenWeatherClient(cfg OpenWeatherConfig, logger *slog.Logger) *OpenWeatherClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOpenWeatherEndpoint
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenWeatherClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *OpenWeatherClient) Name() string {
	return "openweather"
}

// Current fetches the weather at coord
func (c *OpenWeatherClient) Current(ctx context.Context, coord ephemeris.Coordinate) (Snapshot, error) {
	if c.cfg.APIKey == "" {
		return Snapshot{}, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	query.Set("appid", c.cfg.APIKey)
	query.Set("units", c.cfg.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create weather request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Snapshot{}, fmt.Errorf("weather provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode weather response: %w", err)
	}

	snap := Snapshot{
		CloudFraction: clampFraction(payload.Clouds.All / 100),
		Temperature:   payload.Main.Temp,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Humidity:      payload.Main.Humidity,
		Pressure:      payload.Main.Pressure,
	}
	if len(payload.Weather) > 0 {
		snap.Description = payload.Weather[0].Description
		snap.Icon = payload.Weather[0].Icon
	}

	c.logger.Debug("Fetched weather",
		"latitude", coord.Latitude,
		"longitude", coord.Longitude,
		"cloud_fraction", snap.CloudFraction,
		"duration", time.Since(start))

	return snap, nil
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
