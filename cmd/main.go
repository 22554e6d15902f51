package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/questline/scoreboard/internal/adapters/http/api"
	"github.com/questline/scoreboard/internal/adapters/storeapi"
	"github.com/questline/scoreboard/internal/app"
	"github.com/questline/scoreboard/internal/config"
	"github.com/questline/scoreboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store := storeapi.New(cfg.StoreBaseURL,
		storeapi.WithTimeout(time.Duration(cfg.StoreTimeoutMS)*time.Millisecond),
		storeapi.WithRetryPolicy(storeapi.RetryPolicy{
			Attempts: cfg.RetryAttempts,
			Base:     time.Duration(cfg.RetryBaseMS) * time.Millisecond,
			Cap:      time.Duration(cfg.RetryMaxMS) * time.Millisecond,
		}),
		storeapi.WithPageLimit(cfg.PageLimit),
		storeapi.WithLogger(logger.Named("store")),
	)

	svc, err := app.New(store,
		app.WithLogger(log),
		app.WithTableID(cfg.TableID),
		app.WithDisplayName(cfg.TableDisplayName),
		app.WithTotalTasks(cfg.TotalTasks),
		app.WithQuietInterval(time.Duration(cfg.DebounceMS)*time.Millisecond),
		app.WithCacheTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
		app.WithFlushWorkers(cfg.FlushWorkers),
	)
	if err != nil {
		os.Stderr.WriteString("failed to build service: " + err.Error() + "\n")
		return
	}
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}

	apiServer := api.New(svc,
		api.WithLogger(logger.Named("api")),
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
	)

	root := chi.NewRouter()
	root.Mount("/", apiServer.Router())
	root.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout; pending score writes flush in Stop.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service stop failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
