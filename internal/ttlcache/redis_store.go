package ttlcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nom-nom-hub/World-CSS/pkg/redis"
)

// deleteIfOlderScript deletes KEYS[1] when its recorded storedAtMs is below
// ARGV[1]. Running it server side makes the read and delete one step.
const deleteIfOlderScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 0
end
local ok, rec = pcall(cjson.decode, raw)
if (not ok) or type(rec) ~= 'table' or tonumber(rec.storedAtMs) == nil or tonumber(rec.storedAtMs) < tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`

// redisRecord is the value stored under each Redis key. The script compares
// storedAtMs since Lua numbers cannot hold nanosecond timestamps exactly.
type redisRecord struct {
	Key        string `json:"key"`
	StoredAtMs int64  `json:"storedAtMs"`
	StoredAtNs int64  `json:"storedAtNs"`
	TTLMs      int64  `json:"ttlMs"`
	Payload    []byte `json:"payload"`
}

// RedisStore keeps entries as JSON strings under a key prefix. Each key also
// gets a Redis expiry of the sweep max age as a backstop.
type RedisStore struct {
	client redis.Client
	prefix string
	expiry time.Duration
}

// NewRedisStore stores entries under prefix; expiry of zero disables the
// Redis-side expiry.
func NewRedisStore(client redis.Client, prefix string, expiry time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, expiry: expiry}
}

func (s *RedisStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, redis.CacheKey(s.prefix, key))
	if errors.Is(err, redis.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var rec redisRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	if rec.Key != key {
		return Entry{}, false, nil
	}
	return Entry{
		Key:      rec.Key,
		Payload:  rec.Payload,
		StoredAt: time.Unix(0, rec.StoredAtNs).UTC(),
		TTL:      time.Duration(rec.TTLMs) * time.Millisecond,
	}, true, nil
}

func (s *RedisStore) Save(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(redisRecord{
		Key:        entry.Key,
		StoredAtMs: entry.StoredAt.UnixMilli(),
		StoredAtNs: entry.StoredAt.UnixNano(),
		TTLMs:      entry.TTL.Milliseconds(),
		Payload:    entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", entry.Key, err)
	}
	// SET replaces the whole value in one command
	return s.client.Set(ctx, redis.CacheKey(s.prefix, entry.Key), data, s.expiry)
}

func (s *RedisStore) DeleteIfStoredBefore(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	return s.deleteIfOlder(ctx, redis.CacheKey(s.prefix, key), cutoff)
}

// cutoffMs rounds up so an entry stored in the same millisecond as an
// exclusive nanosecond cutoff still compares as older.
func cutoffMs(cutoff time.Time) int64 {
	ms := cutoff.UnixMilli()
	if cutoff.UnixNano()%int64(time.Millisecond) != 0 {
		ms++
	}
	return ms
}

func (s *RedisStore) deleteIfOlder(ctx context.Context, redisKey string, cutoff time.Time) (bool, error) {
	n, err := s.client.EvalInt(ctx, deleteIfOlderScript, []string{redisKey}, cutoffMs(cutoff))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := s.client.Keys(ctx, redis.CachePattern(s.prefix))
	if err != nil {
		return 0, err
	}

	evicted := 0
	var failures []string
	for _, k := range keys {
		deleted, err := s.deleteIfOlder(ctx, k, cutoff)
		if err != nil {
			failures = append(failures, k)
			continue
		}
		if deleted {
			evicted++
		}
	}
	if len(failures) > 0 {
		return evicted, fmt.Errorf("failed to sweep %d keys: %s", len(failures), strings.Join(failures, ", "))
	}
	return evicted, nil
}

func (s *RedisStore) Clear(ctx context.Context) (int, error) {
	keys, err := s.client.Keys(ctx, redis.CachePattern(s.prefix))
	if err != nil {
		return 0, err
	}
	n, err := s.client.Del(ctx, keys...)
	return int(n), err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
