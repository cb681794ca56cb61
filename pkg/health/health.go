package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Probe reports whether a dependency is reachable
type Probe func(ctx context.Context) error

// Checker provides health check functionality for the API and agent processes
type Checker struct {
	mu     sync.RWMutex
	names  []string
	probes map[string]Probe
	logger *slog.Logger
}

// NewChecker creates a health checker with no registered dependencies
func NewChecker(logger *slog.Logger) *Checker {
	return &Checker{
		probes: make(map[string]Probe),
		logger: logger,
	}
}

// Register adds a named dependency probe to the detailed check
func (h *Checker) Register(name string, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.probes[name]; !exists {
		h.names = append(h.names, name)
	}
	h.probes[name] = probe
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// HandlerFunc returns an HTTP handler function for health checks.
// Returns 200 if the process is alive without checking dependencies.
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.write(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// DetailedHandlerFunc returns a handler that runs every registered probe
func (h *Checker) DetailedHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services, healthy := h.Check(ctx)

		status := "healthy"
		statusCode := http.StatusOK
		if !healthy {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		h.write(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Services:  services,
		})
	}
}

// Check runs every probe and reports each dependency as connected or disconnected
func (h *Checker) Check(ctx context.Context) (map[string]string, bool) {
	h.mu.RLock()
	names := append([]string(nil), h.names...)
	probes := make(map[string]Probe, len(h.probes))
	for k, v := range h.probes {
		probes[k] = v
	}
	h.mu.RUnlock()

	services := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := probes[name](ctx); err != nil {
			h.logger.Warn("Health probe failed", "service", name, "error", err)
			services[name] = "disconnected"
			healthy = false
			continue
		}
		services[name] = "connected"
	}
	return services, healthy
}

func (h *Checker) write(w http.ResponseWriter, statusCode int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", "error", err)
	}
}
