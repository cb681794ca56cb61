package ttlcache

import (
	"context"
	"time"
)

// RunSweeper calls Sweep every interval until ctx is cancelled. It blocks,
// so run it in its own goroutine.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultMaxAge
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("Cache sweeper started", "interval", interval, "max_age", c.maxAge)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Cache sweeper stopped")
			return
		case <-ticker.C:
			n, err := c.Sweep(ctx)
			if err != nil {
				c.logger.Warn("Cache sweep failed", "evicted", n, "error", err)
				continue
			}
			if n > 0 {
				c.logger.Info("Cache sweep evicted entries", "evicted", n)
			} else {
				c.logger.Debug("Cache sweep found nothing to evict")
			}
		}
	}
}
