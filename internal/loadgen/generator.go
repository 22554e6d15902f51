package loadgen

import (
	"fmt"
	"math/rand/v2"
)

// Event is one progress submission for a synthetic participant.
type Event struct {
	Username string   `json:"username"`
	TaskID   string   `json:"task_id,omitempty"`
	Metric   *float64 `json:"metric,omitempty"`
	Team     *string  `json:"team,omitempty"`
}

// Metric bands so the generated leaderboard has a believable spread
// instead of a uniform smear.
var metricBands = []struct {
	min, span float64
}{
	{0.85, 0.15}, // top performers
	{0.60, 0.25},
	{0.35, 0.25},
	{0.05, 0.30}, // strugglers
}

// generate produces the full event stream for cfg: each participant gets
// one metric, a team assignment and a random subset of tasks.
func generate(cfg *Config) []Event {
	var events []Event
	for i := 0; i < cfg.Users; i++ {
		username := fmt.Sprintf("loaduser%04d", i)

		band := metricBands[rand.N(len(metricBands))]
		metric := band.min + rand.Float64()*band.span
		events = append(events, Event{Username: username, Metric: &metric})

		if len(cfg.Teams) > 0 {
			team := cfg.Teams[i%len(cfg.Teams)]
			events = append(events, Event{Username: username, Team: &team})
		}

		// Anywhere from one task to all of them, skewed low.
		completed := 1 + rand.N(cfg.TotalTasks)
		for t := 0; t < completed; t++ {
			events = append(events, Event{
				Username: username,
				TaskID:   fmt.Sprintf("task-%02d", t),
			})
		}
	}

	rand.Shuffle(len(events), func(i, j int) {
		events[i], events[j] = events[j], events[i]
	})
	return events
}
