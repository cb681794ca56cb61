package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nom-nom-hub/World-CSS/internal/lookup"
	"github.com/Nom-nom-hub/World-CSS/internal/metrics"
	"github.com/Nom-nom-hub/World-CSS/internal/publisher"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
	"github.com/Nom-nom-hub/World-CSS/internal/ttlcache"
	"github.com/Nom-nom-hub/World-CSS/internal/weather"
	"github.com/Nom-nom-hub/World-CSS/pkg/config"
	"github.com/Nom-nom-hub/World-CSS/pkg/health"
	"github.com/Nom-nom-hub/World-CSS/pkg/mqtt"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "worldcss-agent"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting World.CSS theme agent",
		"service_name", cfg.ServiceName,
		"mqtt_broker", cfg.MQTTAddress(),
		"location", cfg.LocationName,
		"latitude", cfg.Latitude,
		"longitude", cfg.Longitude,
		"cache_backend", cfg.CacheBackend,
		"log_level", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	themeCfg, err := loadThemeConfig(cfg)
	if err != nil {
		logger.Error("Invalid theme configuration", "path", cfg.ThemeConfigPath, "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	backend, err := ttlcache.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open cache store", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	cache := ttlcache.New(backend.Store, logger, ttlcache.Options{
		MaxAge:   config.Seconds(cfg.CacheMaxAgeSec),
		Recorder: m,
	})
	go cache.RunSweeper(ctx, config.Seconds(cfg.CacheSweepIntervalSec))

	weatherClient := weather.NewOpenWeatherClient(weather.OpenWeatherConfig{
		APIKey:   cfg.OpenWeatherAPIKey,
		Endpoint: cfg.OpenWeatherEndpoint,
		Units:    cfg.OpenWeatherUnits,
		Timeout:  config.Seconds(cfg.ProviderTimeoutSec),
	}, logger)

	// The agent publishes for a fixed coordinate and never geolocates
	service := lookup.NewService(cache, weatherClient, nil, themeCfg, lookup.Options{
		SolarTTL:    config.Seconds(cfg.SolarCacheTTLSec),
		WeatherTTL:  config.Seconds(cfg.WeatherCacheTTLSec),
		LocationTTL: config.Seconds(cfg.LocationCacheTTLSec),
		SolarBucket: config.Seconds(cfg.SolarBucketSec),
		Recorder:    m,
	}, logger)

	mqttClient := mqtt.NewClient(cfg, logger)
	agent := publisher.NewAgent(mqttClient, service, cfg, m, logger)

	checker := health.NewChecker(logger)
	checker.Register("mqtt", func(ctx context.Context) error {
		if !mqttClient.IsConnected() {
			return fmt.Errorf("not connected to %s", cfg.MQTTAddress())
		}
		return nil
	})
	checker.Register("cache", cache.Ping)
	httpServer := startHealthServer(cfg.HealthPort, checker, registry, logger)

	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			logger.Error("Agent error", "error", err)
			agentErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	logger.Info("Initiating graceful shutdown")
	cancel()

	if err := agent.Stop(); err != nil {
		logger.Error("Error stopping agent", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Theme agent shutdown complete")
}

func startHealthServer(port int, checker *health.Checker, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func loadThemeConfig(cfg *config.Config) (theme.Config, error) {
	themeCfg := theme.DefaultConfig()
	if cfg.ThemeConfigPath != "" {
		loaded, err := theme.LoadConfig(cfg.ThemeConfigPath)
		if err != nil {
			return theme.Config{}, err
		}
		themeCfg = loaded
	}
	if cfg.ForceTextColors {
		themeCfg = themeCfg.WithForcedText(cfg.ForcedTextColor)
	}
	return themeCfg, themeCfg.Validate()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
