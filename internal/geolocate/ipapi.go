package geolocate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultIPAPIEndpoint  = "http://ip-api.com/json"
	DefaultRequestTimeout = 10 * time.Second
)

type ipAPIResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
}

// IPAPIClient resolves addresses with ip-api.com
type IPAPIClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewIPAPIClient creates a client against endpoint, or the public service
// when endpoint is empty
func NewIPAPIClient(endpoint string, timeout time.Duration, logger *slog.Logger) *IPAPIClient {
	if endpoint == "" {
		endpoint = DefaultIPAPIEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IPAPIClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *IPAPIClient) Name() string {
	return "ip-api"
}

// Locate looks up addr. An empty addr asks the service for the caller's own
// public address.
func (c *IPAPIClient) Locate(ctx context.Context, addr string) (Location, error) {
	target := c.endpoint
	if addr != "" {
		target += "/" + url.PathEscape(addr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to create geolocation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	var payload ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if payload.Status != "success" {
		return Location{}, fmt.Errorf("geolocation failed for %q: %s", addr, payload.Message)
	}

	c.logger.Debug("Located client", "city", payload.City, "country", payload.Country)

	return Location{
		Latitude:  payload.Lat,
		Longitude: payload.Lon,
		City:      payload.City,
		Country:   payload.Country,
		Timezone:  payload.Timezone,
	}, nil
}
