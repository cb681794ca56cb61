// Package api is the HTTP adapter over the lookup service
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nom-nom-hub/World-CSS/internal/lookup"
	"github.com/Nom-nom-hub/World-CSS/pkg/health"
)

// Recorder receives per-request measurements
type Recorder interface {
	HTTPRequest(method, path string, status int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) HTTPRequest(string, string, int, time.Duration) {}

// Server routes HTTP requests to a lookup.Resolver
type Server struct {
	resolver lookup.Resolver
	checker  *health.Checker
	gatherer prometheus.Gatherer
	recorder Recorder
	logger   *slog.Logger
}

// Options holds the optional collaborators of a Server
type Options struct {
	Checker *health.Checker
	// Gatherer backs /metrics; the route is omitted when nil
	Gatherer prometheus.Gatherer
	Recorder Recorder
}

// NewServer creates the HTTP adapter
func NewServer(resolver lookup.Resolver, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Checker == nil {
		opts.Checker = health.NewChecker(logger)
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	return &Server{
		resolver: resolver,
		checker:  opts.Checker,
		gatherer: opts.Gatherer,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// Handler returns the routed handler with CORS, request IDs and logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /api/locate", s.handleLocate)
	s.route(mux, "GET /api/sun", s.handleSun)
	s.route(mux, "GET /api/weather", s.handleWeather)
	s.route(mux, "GET /api/theme", s.handleTheme)
	s.route(mux, "GET /api/theme.css", s.handleThemeCSS)
	s.route(mux, "GET /health", s.checker.HandlerFunc())
	s.route(mux, "GET /api/health", s.checker.HandlerFunc())
	s.route(mux, "GET /health/detailed", s.checker.DetailedHandlerFunc())
	if s.gatherer != nil {
		s.route(mux, "GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}

	return withCORS(mux)
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

// statusWriter remembers the status code written through it
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(pattern string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		elapsed := time.Since(start)
		s.recorder.HTTPRequest(r.Method, r.URL.Path, sw.status, elapsed)
		s.logger.Debug("Handled request",
			"request_id", requestID,
			"method", r.Method,
			"route", pattern,
			"status", sw.status,
			"duration", elapsed)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
