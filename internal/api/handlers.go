package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
	"github.com/Nom-nom-hub/World-CSS/internal/geolocate"
	"github.com/Nom-nom-hub/World-CSS/internal/lookup"
)

var errMissingCoordinates = errors.New("latitude and longitude required")

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	loc, err := s.resolver.Locate(r.Context(), geolocate.ClientAddress(r))
	if err != nil {
		s.fail(w, r, err, "Failed to get location")
		return
	}
	s.ok(w, loc)
}

func (s *Server) handleSun(w http.ResponseWriter, r *http.Request) {
	coord, err := requiredCoordinate(r)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	instant, err := parseInstant(r.URL.Query().Get("time"))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	report, err := s.resolver.Solar(r.Context(), coord, instant)
	if err != nil {
		s.fail(w, r, err, "Failed to calculate solar position")
		return
	}
	s.ok(w, report)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	coord, err := requiredCoordinate(r)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	snap, err := s.resolver.Weather(r.Context(), coord)
	if err != nil {
		s.fail(w, r, err, "Failed to get weather data")
		return
	}
	s.ok(w, snap)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	req, err := s.themeRequest(r)
	if err != nil {
		s.fail(w, r, err, "Failed to resolve theme")
		return
	}

	v, err := s.resolver.Theme(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "Failed to resolve theme")
		return
	}
	s.ok(w, v)
}

func (s *Server) handleThemeCSS(w http.ResponseWriter, r *http.Request) {
	req, err := s.themeRequest(r)
	if err != nil {
		s.fail(w, r, err, "Failed to resolve theme")
		return
	}

	v, err := s.resolver.Theme(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "Failed to resolve theme")
		return
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(v.CSS())); err != nil {
		s.logger.Debug("Failed to write stylesheet", "error", err)
	}
}

// themeRequest builds a theme query. Without coordinates the client is
// geolocated first; manual modes need neither.
func (s *Server) themeRequest(r *http.Request) (lookup.ThemeRequest, error) {
	q := r.URL.Query()
	req := lookup.ThemeRequest{Mode: q.Get("mode")}

	instant, err := parseInstant(q.Get("time"))
	if err != nil {
		return req, err
	}
	req.Instant = instant

	coord, err := requiredCoordinate(r)
	switch {
	case err == nil:
		req.Coordinate = coord
	case errors.Is(err, errMissingCoordinates) && q.Get("lat") == "" && longitudeParam(r) == "":
		if mode := strings.ToLower(req.Mode); mode == "light" || mode == "dark" {
			return req, nil
		}
		loc, err := s.resolver.Locate(r.Context(), geolocate.ClientAddress(r))
		if err != nil {
			return req, err
		}
		req.Coordinate = ephemeris.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}
	default:
		return req, err
	}
	return req, nil
}

func longitudeParam(r *http.Request) string {
	q := r.URL.Query()
	if v := q.Get("lng"); v != "" {
		return v
	}
	return q.Get("lon")
}

// requiredCoordinate reads lat plus lng (or lon) from the query string
func requiredCoordinate(r *http.Request) (ephemeris.Coordinate, error) {
	latRaw, lonRaw := r.URL.Query().Get("lat"), longitudeParam(r)
	if latRaw == "" || lonRaw == "" {
		return ephemeris.Coordinate{}, fmt.Errorf("%w: %w", lookup.ErrInvalidInput, errMissingCoordinates)
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return ephemeris.Coordinate{}, fmt.Errorf("%w: latitude %q is not a number", lookup.ErrInvalidInput, latRaw)
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return ephemeris.Coordinate{}, fmt.Errorf("%w: longitude %q is not a number", lookup.ErrInvalidInput, lonRaw)
	}

	coord := ephemeris.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return ephemeris.Coordinate{}, fmt.Errorf("%w: %w", lookup.ErrInvalidInput, err)
	}
	return coord, nil
}

// parseInstant accepts RFC 3339 or Unix milliseconds; empty means now
func parseInstant(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q is neither RFC 3339 nor Unix milliseconds", lookup.ErrInvalidInput, raw)
	}
	return t.UTC(), nil
}

func (s *Server) ok(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// fail maps invalid input to 400 with the error text and everything else
// to 500 with the generic message
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, lookup.ErrInvalidInput) {
		s.writeJSON(w, http.StatusBadRequest, envelope{Error: errorText(err)})
		return
	}

	s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	if message == "" {
		message = "Internal server error"
	}
	s.writeJSON(w, http.StatusInternalServerError, envelope{Error: message})
}

// errorText strips the sentinel prefix so clients see the specific problem
func errorText(err error) string {
	msg := strings.TrimPrefix(err.Error(), lookup.ErrInvalidInput.Error()+": ")
	if msg == "" {
		return lookup.ErrInvalidInput.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}
