package ttlcache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. It does not survive a
// restart and is meant for development and tests.
type MemoryStore struct {
	// guards read-check-delete sequences; go-cache locks single calls only
	mu    sync.Mutex
	items *gocache.Cache
}

// NewMemoryStore creates an empty store. Expiry is left to Cache, so the
// underlying go-cache runs without a janitor goroutine.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	v, found := s.items.Get(key)
	if !found {
		return Entry{}, false, nil
	}
	return v.(Entry), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, entry Entry) error {
	entry.Payload = append([]byte(nil), entry.Payload...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(entry.Key, entry, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) DeleteIfStoredBefore(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.items.Get(key)
	if !found || !v.(Entry).StoredAt.Before(cutoff) {
		return false, nil
	}
	s.items.Delete(key)
	return true, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, item := range s.items.Items() {
		if item.Object.(Entry).StoredAt.Before(cutoff) {
			s.items.Delete(key)
			evicted++
		}
	}
	return evicted, nil
}

func (s *MemoryStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.items.ItemCount()
	s.items.Flush()
	return n, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
