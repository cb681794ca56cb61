package ttlcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxAge is the sweep's global age limit when Options leaves it unset
	DefaultMaxAge = time.Hour
	// DefaultFlightTimeout bounds a coalesced load once no caller can cancel it
	DefaultFlightTimeout = 30 * time.Second
)

// Recorder receives cache events, normally for metrics
type Recorder interface {
	CacheHit(kind string)
	CacheMiss(kind string)
	CacheStoreError(op string)
	CacheEvicted(n int)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(string)        {}
func (nopRecorder) CacheMiss(string)       {}
func (nopRecorder) CacheStoreError(string) {}
func (nopRecorder) CacheEvicted(int)       {}

// Options configures a Cache
type Options struct {
	// MaxAge bounds entry age for Sweep regardless of entry TTLs
	MaxAge time.Duration
	// Coalesce deduplicates concurrent Fetch misses for the same key
	Coalesce bool
	// FlightTimeout caps a coalesced load, which runs detached from the
	// callers waiting on it
	FlightTimeout time.Duration
	Clock         Clock
	Recorder      Recorder
}

// Cache layers TTL semantics over a Store. Store failures never reach the
// caller of Get or Fetch; they are logged and treated as misses.
type Cache struct {
	store         Store
	clock         Clock
	maxAge        time.Duration
	coalesce      bool
	flightTimeout time.Duration
	group         singleflight.Group
	recorder      Recorder
	logger        *slog.Logger
}

// New creates a cache over store
func New(store Store, logger *slog.Logger, opts Options) *Cache {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.FlightTimeout <= 0 {
		opts.FlightTimeout = DefaultFlightTimeout
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		store:         store,
		clock:         opts.Clock,
		maxAge:        opts.MaxAge,
		coalesce:      opts.Coalesce,
		flightTimeout: opts.FlightTimeout,
		recorder:      opts.Recorder,
		logger:        logger,
	}
}

// Get returns the payload for key if it is present and fresh. An expired
// entry is deleted on the way out unless it has been rewritten meanwhile.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	kind := KindOf(key)

	entry, found, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed, treating as miss", "cache_key", key, "error", err)
		c.recorder.CacheStoreError("load")
		c.recorder.CacheMiss(kind)
		return nil, false
	}
	if !found {
		c.recorder.CacheMiss(kind)
		return nil, false
	}

	if !entry.Valid(c.clock.Now()) {
		// Only remove the version we looked at
		if _, err := c.store.DeleteIfStoredBefore(ctx, key, entry.StoredAt.Add(time.Nanosecond)); err != nil {
			c.logger.Debug("Failed to drop expired cache entry", "cache_key", key, "error", err)
		}
		c.recorder.CacheMiss(kind)
		return nil, false
	}

	c.logger.Debug("Cache hit", "cache_key", key)
	c.recorder.CacheHit(kind)
	return entry.Payload, true
}

// Put stores payload under key with the given TTL, replacing any previous entry
func (c *Cache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("failed to cache %s: ttl must be positive, got %v", key, ttl)
	}

	entry := Entry{
		Key:      key,
		Payload:  append([]byte(nil), payload...),
		StoredAt: c.clock.Now(),
		TTL:      ttl,
	}
	if err := c.store.Save(ctx, entry); err != nil {
		c.recorder.CacheStoreError("save")
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

// Sweep evicts every entry older than the cache's max age
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	cutoff := c.clock.Now().Add(-c.maxAge)

	n, err := c.store.Sweep(ctx, cutoff)
	if n > 0 {
		c.recorder.CacheEvicted(n)
	}
	if err != nil {
		c.recorder.CacheStoreError("sweep")
		return n, fmt.Errorf("failed to sweep cache: %w", err)
	}
	return n, nil
}

// Clear removes every entry
func (c *Cache) Clear(ctx context.Context) (int, error) {
	n, err := c.store.Clear(ctx)
	if err != nil {
		c.recorder.CacheStoreError("clear")
		return n, fmt.Errorf("failed to clear cache: %w", err)
	}
	return n, nil
}

// Ping checks the underlying store
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Loader produces a value on a cache miss. Returning store=false hands the
// value to the caller without caching it.
type Loader func(ctx context.Context) (payload []byte, store bool, err error)

// Fetch returns the cached payload for key, or runs load and caches its
// result for ttl. Loader errors are returned and nothing is cached.
//
// With coalescing on, concurrent misses share one load. That load runs
// detached from every caller's context and is bounded only by the flight
// timeout: a caller that gives up gets ctx.Err() while the others still
// receive the result.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, load Loader) ([]byte, error) {
	if payload, ok := c.Get(ctx, key); ok {
		return payload, nil
	}

	if !c.coalesce {
		return c.loadAndStore(ctx, key, ttl, load)
	}

	flight := c.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()

		// A concurrent flight may have just filled the entry
		if payload, ok := c.Get(fctx, key); ok {
			return payload, nil
		}
		return c.loadAndStore(fctx, key, ttl, load)
	})

	select {
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("Coalesced cache miss", "cache_key", key)
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) loadAndStore(ctx context.Context, key string, ttl time.Duration, load Loader) ([]byte, error) {
	payload, store, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if store {
		if err := c.Put(ctx, key, payload, ttl); err != nil {
			c.logger.Warn("Cache write failed", "cache_key", key, "error", err)
		}
	}
	return payload, nil
}

// ErrCorruptEntry is returned by FetchJSON when a payload still does not
// decode after the stored entry was dropped and reloaded.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// FetchJSON is Fetch for JSON-encoded values. A cached payload that no longer
// decodes into T is dropped and reloaded once.
func FetchJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, bool, error)) (T, error) {
	loader := func(ctx context.Context) ([]byte, bool, error) {
		v, store, err := load(ctx)
		if err != nil {
			return nil, false, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return data, store, nil
	}

	var out T
	for attempt := 0; ; attempt++ {
		payload, err := c.Fetch(ctx, key, ttl, loader)
		if err != nil {
			return out, err
		}

		decodeErr := json.Unmarshal(payload, &out)
		if decodeErr == nil {
			return out, nil
		}
		if attempt > 0 {
			return out, fmt.Errorf("%w %s: %v", ErrCorruptEntry, key, decodeErr)
		}

		c.logger.Warn("Dropping undecodable cache entry", "cache_key", key, "error", decodeErr)
		c.dropIfUnchanged(ctx, key, payload)
		out = *new(T)
	}
}

// dropIfUnchanged deletes key only while it still holds payload, bounded by
// that entry's own storedAt so a concurrent rewrite survives.
func (c *Cache) dropIfUnchanged(ctx context.Context, key string, payload []byte) {
	entry, found, err := c.store.Load(ctx, key)
	if err != nil || !found || !bytes.Equal(entry.Payload, payload) {
		return
	}
	if _, err := c.store.DeleteIfStoredBefore(ctx, key, entry.StoredAt.Add(time.Nanosecond)); err != nil {
		c.logger.Debug("Failed to drop cache entry", "cache_key", key, "error", err)
	}
}
