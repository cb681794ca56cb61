// Package ttlcache is a durable key/value cache with per-entry expiry and a
// coarse periodic sweep. Entries live in a pluggable Store; the file, Redis
// and Postgres stores survive restarts, the memory store does not.
package ttlcache

import (
	"context"
	"time"
)

// Entry is the unit of storage
type Entry struct {
	Key      string
	Payload  []byte
	StoredAt time.Time
	TTL      time.Duration
}

// Valid reports whether the entry is still fresh at now
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// Store persists entries. Implementations must make a single Save atomic so
// a concurrent Load never sees a partial entry.
type Store interface {
	// Load returns the entry for key; found is false when there is none
	Load(ctx context.Context, key string) (entry Entry, found bool, err error)

	// Save writes the entry, replacing any previous one for its key
	Save(ctx context.Context, entry Entry) error

	// DeleteIfStoredBefore removes key only if its recorded StoredAt is
	// before cutoff, deciding on the value present at the moment of deletion
	DeleteIfStoredBefore(ctx context.Context, key string, cutoff time.Time) (bool, error)

	// Sweep removes every entry stored before cutoff and returns how many
	Sweep(ctx context.Context, cutoff time.Time) (int, error)

	// Clear removes every entry and returns how many
	Clear(ctx context.Context) (int, error)

	// Ping checks the backing storage is reachable
	Ping(ctx context.Context) error
}
