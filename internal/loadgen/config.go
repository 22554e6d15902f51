// Package loadgen drives a running scoreboard instance with synthetic
// participant traffic and verifies the resulting standings.
package loadgen

import "time"

// Default load configuration constants.
const (
	defaultUsers       = 200
	defaultTotalTasks  = 20
	defaultWorkers     = 16
	defaultTopN        = 50
	defaultHTTPTimeout = 10 * time.Second
	defaultSettleDelay = 3 * time.Second
)

// Config controls one load run.
type Config struct {
	// BaseURL of the service under load, e.g. http://localhost:9090.
	BaseURL string
	// Users is the number of synthetic participants.
	Users int
	// TotalTasks must match the service's configured task count.
	TotalTasks int
	// Teams to spread participants across; empty means no teams.
	Teams []string
	// Workers is the submission concurrency.
	Workers int
	// TopN is the leaderboard page size to verify.
	TopN int
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// SettleDelay is how long to wait for debounced writes to land.
	SettleDelay time.Duration
	// Verbose enables per-event logging.
	Verbose bool
}

// DefaultConfig returns a Config with usable defaults for a local run.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:9090",
		Users:       defaultUsers,
		TotalTasks:  defaultTotalTasks,
		Teams:       []string{"red", "blue", "green"},
		Workers:     defaultWorkers,
		TopN:        defaultTopN,
		Timeout:     defaultHTTPTimeout,
		SettleDelay: defaultSettleDelay,
	}
}

// Stats accumulates run counters.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	EventsSubmitted int64
	EventsFailed    int64
	SyncsIssued     int64
}
