// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layer file and environment overrides in Load.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBaseURL is the root URL of the backing table service.
	StoreBaseURL string `koanf:"store_base_url"`

	// StoreTimeoutMS bounds each store request attempt.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// RetryAttempts caps attempts per store call, first try included.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBaseMS and RetryMaxMS bound the backoff between attempts.
	RetryBaseMS int `koanf:"retry_base_ms"`
	RetryMaxMS  int `koanf:"retry_max_ms"`

	// TableID names the backing leaderboard table.
	TableID string `koanf:"table_id"`

	// TableDisplayName is the table's human-readable name.
	TableDisplayName string `koanf:"table_display_name"`

	// TotalTasks is the denominator of every composite score. Required.
	TotalTasks int `koanf:"total_tasks"`

	// DebounceMS sets the write quiet interval.
	DebounceMS int `koanf:"debounce_ms"`

	// CacheTTLSeconds sets the leaderboard snapshot lifetime.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// PageLimit sets the store listing page size.
	PageLimit int `koanf:"page_limit"`

	// FlushWorkers sets the number of concurrent background writers.
	FlushWorkers int `koanf:"flush_workers"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		StoreBaseURL:        "http://localhost:8080",
		StoreTimeoutMS:      10_000,
		RetryAttempts:       3,
		RetryBaseMS:         200,
		RetryMaxMS:          2_000,
		TableID:             "scoreboard",
		TableDisplayName:    "Scoreboard",
		TotalTasks:          0,
		DebounceMS:          2_000,
		CacheTTLSeconds:     45,
		PageLimit:           50,
		FlushWorkers:        4,
		MaxLeaderboardLimit: 100,
	}
}
