package loadgen

import (
	"context"
	"fmt"

	"github.com/questline/scoreboard/pkg/logger"
)

// verify checks the standings a load run must produce: a descending,
// contiguously ranked leaderboard and team means inside the score range.
func verify(ctx context.Context, cfg *Config, c *client) error {
	log := logger.Get()

	page, err := c.leaderboard(ctx, cfg.TopN)
	if err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}
	if len(page.Entries) == 0 {
		return fmt.Errorf("leaderboard is empty after %d users", cfg.Users)
	}

	for i, e := range page.Entries {
		if e.Rank != i+1 {
			return fmt.Errorf("rank gap at position %d: got rank %d", i, e.Rank)
		}
		if i > 0 && e.Score > page.Entries[i-1].Score {
			return fmt.Errorf("ordering violated at rank %d: %.4f above %.4f",
				e.Rank, e.Score, page.Entries[i-1].Score)
		}
		if e.Score < 0 {
			return fmt.Errorf("negative score %.4f for %s", e.Score, e.Username)
		}
	}
	log.Info(ctx, "leaderboard verified",
		logger.Int("entries", len(page.Entries)),
		logger.Any("stale", page.Stale))

	if len(cfg.Teams) == 0 {
		return nil
	}

	teams, err := c.teams(ctx)
	if err != nil {
		return fmt.Errorf("fetch teams: %w", err)
	}
	if len(teams.Teams) != len(cfg.Teams) {
		return fmt.Errorf("expected %d teams, got %d", len(cfg.Teams), len(teams.Teams))
	}
	for i, te := range teams.Teams {
		if te.Rank != i+1 {
			return fmt.Errorf("team rank gap at position %d: got rank %d", i, te.Rank)
		}
		if i > 0 && te.MeanScore > teams.Teams[i-1].MeanScore {
			return fmt.Errorf("team ordering violated at rank %d", te.Rank)
		}
		if te.Members == 0 {
			return fmt.Errorf("team %s ranked with zero members", te.TeamName)
		}
	}
	log.Info(ctx, "team standings verified", logger.Int("teams", len(teams.Teams)))
	return nil
}
