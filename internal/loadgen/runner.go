package loadgen

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/questline/scoreboard/pkg/logger"
)

// Run executes one full load pass: health check, event submission, a
// settle period for the debouncer, then standings verification.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("total_tasks", cfg.TotalTasks),
		logger.Int("workers", cfg.Workers))

	if err := c.health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	events := generate(cfg)
	log.Info(ctx, "generated events", logger.Int("count", len(events)))

	if err := submit(ctx, cfg, c, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	log.Info(ctx, "waiting for debounced writes to settle",
		logger.String("delay", cfg.SettleDelay.String()))
	select {
	case <-time.After(cfg.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := syncAll(ctx, cfg, c, stats); err != nil {
		return fmt.Errorf("forced sync failed: %w", err)
	}

	if err := verify(ctx, cfg, c); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "load run complete",
		logger.String("duration", stats.Duration.String()),
		logger.Any("submitted", atomic.LoadInt64(&stats.EventsSubmitted)),
		logger.Any("failed", atomic.LoadInt64(&stats.EventsFailed)),
		logger.Any("syncs", atomic.LoadInt64(&stats.SyncsIssued)))

	if failed := atomic.LoadInt64(&stats.EventsFailed); failed > 0 {
		return fmt.Errorf("%d events failed to submit", failed)
	}
	return nil
}

func submit(ctx context.Context, cfg *Config, c *client, events []Event, stats *Stats) error {
	log := logger.Get()
	pool := pond.NewPool(cfg.Workers)

	for _, ev := range events {
		ev := ev
		pool.Submit(func() {
			if err := c.postProgress(ctx, ev); err != nil {
				atomic.AddInt64(&stats.EventsFailed, 1)
				if cfg.Verbose {
					log.Warn(ctx, "submit failed",
						logger.String("username", ev.Username), logger.Error(err))
				}
				return
			}
			atomic.AddInt64(&stats.EventsSubmitted, 1)
		})
	}

	pool.StopAndWait()
	return ctx.Err()
}

// syncAll forces every participant's pending write out so verification
// reads confirmed store state.
func syncAll(ctx context.Context, cfg *Config, c *client, stats *Stats) error {
	pool := pond.NewPool(cfg.Workers)
	for i := 0; i < cfg.Users; i++ {
		username := fmt.Sprintf("loaduser%04d", i)
		pool.Submit(func() {
			if err := c.postSync(ctx, username); err == nil {
				atomic.AddInt64(&stats.SyncsIssued, 1)
			}
		})
	}
	pool.StopAndWait()
	return ctx.Err()
}
