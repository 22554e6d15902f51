package app

import (
	"time"

	"github.com/questline/scoreboard/pkg/logger"
)

// Default engine configuration constants.
const (
	defaultTableID      = "scoreboard"
	defaultDisplayName  = "Scoreboard"
	defaultQuiet        = 2 * time.Second
	defaultCacheTTL     = 45 * time.Second
	defaultFlushWorkers = 4
)

type options struct {
	tableID      string
	displayName  string
	totalTasks   int
	quiet        time.Duration
	cacheTTL     time.Duration
	flushWorkers int
	log          logger.Logger
}

func defaultOptions() options {
	return options{
		tableID:      defaultTableID,
		displayName:  defaultDisplayName,
		quiet:        defaultQuiet,
		cacheTTL:     defaultCacheTTL,
		flushWorkers: defaultFlushWorkers,
	}
}

// Option applies a configuration option to the Service.
type Option func(*options)

// WithTableID sets the backing table id.
func WithTableID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.tableID = id
		}
	}
}

// WithDisplayName sets the table's human-readable name.
func WithDisplayName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.displayName = name
		}
	}
}

// WithTotalTasks sets the task count every composite score is computed
// against. Required; there is no usable default.
func WithTotalTasks(n int) Option {
	return func(o *options) {
		o.totalTasks = n
	}
}

// WithQuietInterval sets the write debounce interval.
func WithQuietInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.quiet = d
		}
	}
}

// WithCacheTTL sets how long leaderboard snapshots are served before rebuild.
func WithCacheTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cacheTTL = d
		}
	}
}

// WithFlushWorkers sets the number of concurrent background writers.
func WithFlushWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.flushWorkers = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}
