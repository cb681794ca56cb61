package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Nom-nom-hub/World-CSS/pkg/config"
	_ "github.com/lib/pq"
)

// ErrNotConnected is returned by every query method before Connect succeeds
// or after Disconnect.
var ErrNotConnected = errors.New("postgres client not connected")

const connectRetryInterval = time.Second

// PostgresClient wraps a database/sql pool opened through lib/pq.
type PostgresClient struct {
	config *config.Config
	logger *slog.Logger

	mu sync.RWMutex
	db *sql.DB
}

func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClient{
		config: cfg,
		logger: logger.With("component", "postgres"),
	}
}

// Connect opens the pool and pings until the server answers or ctx ends.
// The cache backend is often started alongside its database, so a refused
// first ping is retried rather than treated as fatal.
func (c *PostgresClient) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to Postgres",
		"host", c.config.PostgresHost,
		"port", c.config.PostgresPort,
		"database", c.config.PostgresDB)

	db, err := sql.Open("postgres", c.config.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(c.config.PostgresMaxConnections)
	db.SetMaxIdleConns(c.config.PostgresMaxIdleConnections)
	db.SetConnMaxLifetime(c.config.PostgresConnMaxLifetime)

	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		c.logger.Debug("Postgres not ready", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			db.Close()
			return fmt.Errorf("failed to ping postgres after %d attempts: %w", attempt, err)
		case <-time.After(connectRetryInterval):
		}
	}

	c.mu.Lock()
	old := c.db
	c.db = db
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}

	c.logger.Info("Connected to Postgres")
	return nil
}

func (c *PostgresClient) Disconnect() error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()

	if db == nil {
		return nil
	}
	c.logger.Info("Disconnecting from Postgres")
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	return nil
}

func (c *PostgresClient) pool() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

func (c *PostgresClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db, err := c.pool()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, query, args...)
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	db, err := c.pool()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	db, err := c.pool()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}
