package redis

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = errors.New("redis key does not exist")

// Client represents a Redis client interface for testing and abstraction
type Client interface {
	// Set sets a key to a value with an optional TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Get gets the value of a key, returning ErrNotFound when it is absent
	Get(ctx context.Context, key string) (string, error)

	// Del removes keys and returns how many existed
	Del(ctx context.Context, keys ...string) (int64, error)

	// Keys returns all keys matching a pattern
	Keys(ctx context.Context, pattern string) ([]string, error)

	// EvalInt runs a Lua script and returns its integer reply
	EvalInt(ctx context.Context, script string, keys []string, args ...interface{}) (int64, error)

	// Ping checks the connection to Redis
	Ping(ctx context.Context) error

	// Close closes the Redis connection
	Close() error
}
