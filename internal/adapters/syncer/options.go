package syncer

import (
	"time"

	"github.com/questline/scoreboard/pkg/logger"
)

// Option applies a configuration option to the Syncer.
type Option func(*Syncer)

// WithQuietInterval sets how long an update must sit unreplaced before it
// is written.
func WithQuietInterval(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// WithMaxBackoff caps the retry delay after failed writes.
func WithMaxBackoff(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.maxBackoff = d
		}
	}
}

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithWorkers sets the number of concurrent flush workers.
func WithWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize sets the flush queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithLogger sets a logger for flush diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(s *Syncer) {
		s.log = log
	}
}
