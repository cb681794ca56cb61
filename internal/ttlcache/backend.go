package ttlcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Nom-nom-hub/World-CSS/pkg/config"
	"github.com/Nom-nom-hub/World-CSS/pkg/postgres"
	"github.com/Nom-nom-hub/World-CSS/pkg/redis"
)

// Backend is an opened Store together with the connection behind it
type Backend struct {
	Name  string
	Store Store
	// Probe checks the remote connection; nil for healthy local backends
	Probe func(ctx context.Context) error
	// Degraded is set when the configured store could not be opened and
	// every lookup misses instead
	Degraded bool
	close    func() error
}

// Close releases the backend's connection, if any
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend builds the store selected by cfg.CacheBackend. A store that
// cannot be opened does not stop the process: the backend comes back
// Degraded, logs a warning, and its Probe keeps reporting the failure. Only
// an unknown backend name is an error.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.CacheBackend {
	case "memory":
		return &Backend{Name: "memory", Store: NewMemoryStore()}, nil

	case "file", "":
		store, err := NewFileStore(cfg.CacheDir, logger)
		if err != nil {
			return degraded("file", err, nil, logger), nil
		}
		return &Backend{Name: "file", Store: store}, nil

	case "redis":
		client := redis.NewClient(cfg, logger)
		// Redis-side expiry backs up the sweeper if it ever stops running
		expiry := 2 * config.Seconds(cfg.CacheMaxAgeSec)
		b := &Backend{
			Name:  "redis",
			Store: NewRedisStore(client, cfg.RedisKeyPrefix, expiry),
			Probe: client.Ping,
			close: client.Close,
		}
		// go-redis redials on every command, so the store is kept and
		// reads miss until the server comes back.
		if err := client.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, cache will miss until it recovers",
				"address", cfg.RedisAddress(), "error", err)
			b.Degraded = true
		}
		return b, nil

	case "postgres":
		client := postgres.NewClient(cfg, logger)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Connect(connectCtx); err != nil {
			return degraded("postgres", err, nil, logger), nil
		}
		store, err := NewPostgresStore(connectCtx, client)
		if err != nil {
			return degraded("postgres", err, client.Disconnect, logger), nil
		}
		return &Backend{
			Name:  "postgres",
			Store: store,
			Probe: postgres.Probe(client),
			close: client.Disconnect,
		}, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

func degraded(name string, cause error, closeFn func() error, logger *slog.Logger) *Backend {
	logger.Warn("Cache store unavailable, running without a cache", "backend", name, "error", cause)
	err := fmt.Errorf("%s cache store unavailable: %w", name, cause)
	return &Backend{
		Name:     name,
		Store:    discardStore{err: err},
		Probe:    func(context.Context) error { return err },
		Degraded: true,
		close:    closeFn,
	}
}

// discardStore holds nothing: every Load misses and every Save is dropped.
type discardStore struct {
	err error
}

func (discardStore) Load(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }
func (discardStore) Save(context.Context, Entry) error                 { return nil }
func (discardStore) DeleteIfStoredBefore(context.Context, string, time.Time) (bool, error) {
	return false, nil
}
func (discardStore) Sweep(context.Context, time.Time) (int, error) { return 0, nil }
func (discardStore) Clear(context.Context) (int, error)            { return 0, nil }
func (s discardStore) Ping(context.Context) error                  { return s.err }
