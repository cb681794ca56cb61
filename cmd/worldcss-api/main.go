package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Nom-nom-hub/World-CSS/internal/api"
	"github.com/Nom-nom-hub/World-CSS/internal/geolocate"
	"github.com/Nom-nom-hub/World-CSS/internal/lookup"
	"github.com/Nom-nom-hub/World-CSS/internal/metrics"
	"github.com/Nom-nom-hub/World-CSS/internal/theme"
	"github.com/Nom-nom-hub/World-CSS/internal/ttlcache"
	"github.com/Nom-nom-hub/World-CSS/internal/weather"
	"github.com/Nom-nom-hub/World-CSS/pkg/config"
	"github.com/Nom-nom-hub/World-CSS/pkg/health"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "worldcss-api"
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

	logger.Info("Starting World.CSS API",
		"service_name", cfg.ServiceName,
		"port", cfg.APIPort,
		"cache_backend", cfg.CacheBackend,
		"coalesce_misses", cfg.CoalesceMisses,
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
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker(logger)

	backend, err := ttlcache.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open cache store", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Error closing cache backend", "backend", backend.Name, "error", err)
		}
	}()
	if backend.Probe != nil {
		checker.Register(backend.Name, backend.Probe)
	}

	cache := ttlcache.New(backend.Store, logger, ttlcache.Options{
		MaxAge:   config.Seconds(cfg.CacheMaxAgeSec),
		Coalesce: cfg.CoalesceMisses,
		Recorder: m,
	})
	checker.Register("cache", cache.Ping)

	if cfg.ClearCache {
		n, err := cache.Clear(ctx)
		if err != nil {
			logger.Error("Failed to clear cache", "error", err)
			os.Exit(1)
		}
		logger.Info("Cache cleared", "removed", n)
		return
	}

	providerTimeout := config.Seconds(cfg.ProviderTimeoutSec)
	weatherClient := weather.NewOpenWeatherClient(weather.OpenWeatherConfig{
		APIKey:   cfg.OpenWeatherAPIKey,
		Endpoint: cfg.OpenWeatherEndpoint,
		Units:    cfg.OpenWeatherUnits,
		Timeout:  providerTimeout,
	}, logger)
	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("No OpenWeatherMap API key configured, weather lookups will use fallback data")
	}
	locator := geolocate.NewIPAPIClient(cfg.GeolocationEndpoint, providerTimeout, logger)

	service := lookup.NewService(cache, weatherClient, locator, themeCfg, lookup.Options{
		SolarTTL:    config.Seconds(cfg.SolarCacheTTLSec),
		WeatherTTL:  config.Seconds(cfg.WeatherCacheTTLSec),
		LocationTTL: config.Seconds(cfg.LocationCacheTTLSec),
		SolarBucket: config.Seconds(cfg.SolarBucketSec),
		Recorder:    m,
	}, logger)

	server := api.NewServer(service, api.Options{
		Checker:  checker,
		Gatherer: registry,
		Recorder: m,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go cache.RunSweeper(ctx, config.Seconds(cfg.CacheSweepIntervalSec))

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "port", cfg.APIPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	}

	logger.Info("Initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}

	logger.Info("World.CSS API shutdown complete")
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
