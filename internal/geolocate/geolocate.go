// Package geolocate maps client network addresses to coordinates
package geolocate

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Location is a geolocated coordinate with display details
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}

// Locator resolves a client address
type Locator interface {
	Name() string
	Locate(ctx context.Context, addr string) (Location, error)
}

// FallbackLocation is served when the locator fails
func FallbackLocation() Location {
	return Location{
		Latitude:  40.7128,
		Longitude: -74.0060,
		City:      "New York",
		Country:   "US",
		Timezone:  "America/New_York",
	}
}

// ClientAddress returns the originating client IP of r. The first
// X-Forwarded-For hop wins over the socket peer.
func ClientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
