package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HealthStatus represents the health of the Postgres connection
type HealthStatus struct {
	Connected     bool      `json:"connected"`
	ServerVersion string    `json:"server_version,omitempty"`
	Database      string    `json:"database"`
	CacheEntries  int64     `json:"cache_entries"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// HealthCheck pings the server and counts rows in the cache table. A missing
// table is reported in Error but still counts as connected.
func (c *PostgresClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := HealthStatus{
		Database:  c.config.PostgresDB,
		Timestamp: time.Now(),
	}

	db, err := c.pool()
	if err != nil {
		status.Error = "not connected"
		return &status, nil
	}

	if err := db.PingContext(ctx); err != nil {
		status.Error = fmt.Sprintf("ping failed: %v", err)
		return &status, nil
	}
	status.Connected = true

	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		status.Error = fmt.Sprintf("failed to get version: %v", err)
		return &status, nil
	}
	status.ServerVersion = version

	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM cache_entries").Scan(&status.CacheEntries); err != nil {
		status.Error = fmt.Sprintf("failed to count cache entries: %v", err)
	}

	return &status, nil
}

// Probe adapts HealthCheck to the health package's probe signature
func Probe(c Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		status, err := c.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if !status.Connected {
			return errors.New(status.Error)
		}
		return nil
	}
}
