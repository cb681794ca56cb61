package ttlcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key         TEXT PRIMARY KEY,
	payload     BYTEA NOT NULL,
	stored_at   TIMESTAMPTZ NOT NULL,
	ttl_seconds DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS cache_entries_stored_at_idx ON cache_entries (stored_at);
`

// timestamptz keeps microseconds. Stored times are truncated to that
// resolution and cutoffs rounded up to it, so "stored_at < cutoff" in SQL
// agrees with Entry.StoredAt.Before(cutoff) in Go.
func storedAtColumn(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func cutoffColumn(t time.Time) time.Time {
	trunc := storedAtColumn(t)
	if trunc.Before(t) {
		return trunc.Add(time.Microsecond)
	}
	return trunc
}

// SQLClient is the subset of pkg/postgres.Client the store needs
type SQLClient interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	Ping(ctx context.Context) error
}

// PostgresStore keeps entries in the cache_entries table. Single-row
// statements give the atomicity the cache needs.
type PostgresStore struct {
	db SQLClient
}

// NewPostgresStore creates the table if it does not exist
func NewPostgresStore(ctx context.Context, db SQLClient) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create cache_entries table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT payload, stored_at, ttl_seconds FROM cache_entries WHERE key = $1`, key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to load cache entry %s: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Entry{}, false, rows.Err()
	}

	var (
		payload    []byte
		storedAt   time.Time
		ttlSeconds float64
	)
	if err := rows.Scan(&payload, &storedAt, &ttlSeconds); err != nil {
		return Entry{}, false, fmt.Errorf("failed to scan cache entry %s: %w", key, err)
	}

	return Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: storedAt.UTC(),
		TTL:      time.Duration(ttlSeconds * float64(time.Second)),
	}, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, entry Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cache_entries (key, payload, stored_at, ttl_seconds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			stored_at = EXCLUDED.stored_at,
			ttl_seconds = EXCLUDED.ttl_seconds`,
		entry.Key, entry.Payload, storedAtColumn(entry.StoredAt), entry.TTL.Seconds())
	if err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", entry.Key, err)
	}
	return nil
}

func (s *PostgresStore) DeleteIfStoredBefore(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	res, err := s.db.Exec(ctx,
		`DELETE FROM cache_entries WHERE key = $1 AND stored_at < $2`, key, cutoffColumn(cutoff))
	if err != nil {
		return false, fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read deleted rows: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM cache_entries WHERE stored_at < $1`, cutoffColumn(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read swept rows: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read cleared rows: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
