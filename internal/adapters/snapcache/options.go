package snapcache

import (
	"time"

	"github.com/questline/scoreboard/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long a snapshot is served before being rebuilt.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithLogger sets a logger for stale-serve warnings.
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) {
		c.log = log
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}
