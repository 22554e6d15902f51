package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/questline/scoreboard/internal/loadgen"
	"github.com/questline/scoreboard/pkg/logger"
)

const runTimeout = 10 * time.Minute

func main() {
	defaults := loadgen.DefaultConfig()

	var (
		baseURL    = flag.String("url", defaults.BaseURL, "Base URL of the service")
		users      = flag.Int("users", defaults.Users, "Number of synthetic participants")
		totalTasks = flag.Int("tasks", defaults.TotalTasks, "Task count the service is configured with")
		teams      = flag.String("teams", strings.Join(defaults.Teams, ","), "Comma-separated team names; empty disables teams")
		workers    = flag.Int("workers", defaults.Workers, "Submission concurrency")
		topN       = flag.Int("top", defaults.TopN, "Leaderboard page size to verify")
		timeout    = flag.Duration("timeout", defaults.Timeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaults.SettleDelay, "Wait for debounced writes before verifying")
		verbose    = flag.Bool("verbose", false, "Log individual submission failures")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := &loadgen.Config{
		BaseURL:     *baseURL,
		Users:       *users,
		TotalTasks:  *totalTasks,
		Workers:     *workers,
		TopN:        *topN,
		Timeout:     *timeout,
		SettleDelay: *settle,
		Verbose:     *verbose,
	}
	if *teams != "" {
		cfg.Teams = strings.Split(*teams, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := loadgen.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
