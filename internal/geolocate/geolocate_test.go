package geolocate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "http://geo.test/json"

func newMockedClient(t *testing.T) *IPAPIClient {
	t.Helper()
	c := NewIPAPIClient(testEndpoint+"/", 0, nil)
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestIPAPILocate(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"/8.8.8.8",
		httpmock.NewStringResponder(http.StatusOK, `{
  "status": "success",
  "country": "United States",
  "city": "Ashburn",
  "lat": 39.03,
  "lon": -77.5,
  "timezone": "America/New_York"
}`))

	loc, err := c.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, Location{Latitude: 39.03, Longitude: -77.5, City: "Ashburn", Country: "United States", Timezone: "America/New_York"}, loc)
}

func TestIPAPILocateSelf(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"status":"success","lat":1,"lon":2}`))

	loc, err := c.Locate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, loc.Latitude)
	assert.Equal(t, 2.0, loc.Longitude)
}

func TestIPAPILocateFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		contains  string
	}{
		{"private_range", httpmock.NewStringResponder(http.StatusOK, `{"status":"fail","message":"private range"}`), "private range"},
		{"server_error", httpmock.NewStringResponder(http.StatusServiceUnavailable, ``), "status 503"},
		{"garbage", httpmock.NewStringResponder(http.StatusOK, `<html>`), "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockedClient(t)
			httpmock.RegisterResponder(http.MethodGet, testEndpoint+"/10.0.0.1", tt.responder)

			_, err := c.Locate(context.Background(), "10.0.0.1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestFallbackLocation(t *testing.T) {
	loc := FallbackLocation()

	assert.Equal(t, 40.7128, loc.Latitude)
	assert.Equal(t, -74.0060, loc.Longitude)
	assert.Equal(t, "New York", loc.City)
	assert.Equal(t, "America/New_York", loc.Timezone)
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote_addr", nil, "203.0.113.7:51234", "203.0.113.7"},
		{"ipv6_remote_addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"forwarded_first_hop", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, "10.0.0.1:80", "198.51.100.2"},
		{"real_ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "10.0.0.1:80", "198.51.100.9"},
		{"no_port", nil, "198.51.100.3", "198.51.100.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/locate", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientAddress(r))
		})
	}
}
