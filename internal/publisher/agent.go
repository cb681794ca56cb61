// Package publisher periodically re-evaluates the theme for a fixed location
// and publishes it as a retained MQTT message.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Nom-nom-hub/World-CSS/internal/ephemeris"
	"github.com/Nom-nom-hub/World-CSS/internal/lookup"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
	"github.com/Nom-nom-hub/World-CSS/pkg/config"
	"github.com/Nom-nom-hub/World-CSS/pkg/mqtt"
)

// Recorder receives publish outcomes
type Recorder interface {
	ThemePublished(err error)
}

type nopRecorder struct{}

func (nopRecorder) ThemePublished(error) {}

// Message is the retained payload on the theme topic
type Message struct {
	Location     string            `json:"location"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	Theme        theme.Vector      `json:"theme"`
	CSSVariables map[string]string `json:"cssVariables"`
	PublishedAt  time.Time         `json:"publishedAt"`
}

// Agent publishes the theme for the configured location every update interval
type Agent struct {
	mqtt     mqtt.Client
	resolver lookup.Resolver
	cfg      *config.Config
	recorder Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	stopped chan struct{}
}

// NewAgent creates a new publisher agent with the given dependencies
func NewAgent(mqttClient mqtt.Client, resolver lookup.Resolver, cfg *config.Config, recorder Recorder, logger *slog.Logger) *Agent {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		mqtt:     mqttClient,
		resolver: resolver,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
	}
}

// Topic is where this agent publishes
func (a *Agent) Topic() string {
	return mqtt.ThemeTopic(a.cfg.MQTTTopicPrefix, a.cfg.LocationName)
}

// Start connects to the broker, publishes immediately and then once per
// interval until ctx is cancelled. Publish failures are logged and retried
// on the next tick.
func (a *Agent) Start(ctx context.Context) error {
	interval := config.Seconds(a.cfg.UpdateIntervalSec)

	a.logger.Info("Starting theme publisher",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress(),
		"topic", a.Topic(),
		"subscribe_pattern", mqtt.ThemeWildcard(a.cfg.MQTTTopicPrefix),
		"interval", interval)

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	a.mu.Lock()
	a.stopped = make(chan struct{})
	stopped := a.stopped
	a.mu.Unlock()
	defer close(stopped)

	a.publishLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Theme publisher stopping")
			return nil
		case <-ticker.C:
			a.publishLogged(ctx)
		}
	}
}

func (a *Agent) publishLogged(ctx context.Context) {
	if err := a.PublishOnce(ctx); err != nil {
		a.logger.Warn("Theme publish failed", "topic", a.Topic(), "error", err)
	}
}

// PublishOnce resolves the current theme and publishes it
func (a *Agent) PublishOnce(ctx context.Context) error {
	err := a.publish(ctx)
	a.recorder.ThemePublished(err)
	return err
}

func (a *Agent) publish(ctx context.Context) error {
	coord := ephemeris.Coordinate{Latitude: a.cfg.Latitude, Longitude: a.cfg.Longitude}

	v, err := a.resolver.Theme(ctx, lookup.ThemeRequest{Coordinate: coord})
	if err != nil {
		return fmt.Errorf("failed to resolve theme: %w", err)
	}

	payload, err := json.Marshal(Message{
		Location:     a.cfg.LocationName,
		Latitude:     coord.Latitude,
		Longitude:    coord.Longitude,
		Theme:        v,
		CSSVariables: v.CSSVariables(),
		PublishedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode theme message: %w", err)
	}

	if err := a.mqtt.Publish(a.Topic(), 1, true, payload); err != nil {
		return err
	}

	a.logger.Info("Published theme", "topic", a.Topic(), "phase", v.Phase, "progress", v.Progress)
	return nil
}

// Stop waits for Start to return and disconnects from the broker. Cancel the
// context passed to Start first.
func (a *Agent) Stop() error {
	a.logger.Info("Stopping theme publisher")

	a.mu.Lock()
	stopped := a.stopped
	a.mu.Unlock()
	if stopped != nil {
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			return fmt.Errorf("timed out waiting for publisher loop to exit")
		}
	}

	a.mqtt.Disconnect()
	a.logger.Info("Theme publisher stopped")
	return nil
}
