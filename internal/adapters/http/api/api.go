// Package api exposes the score engine over HTTP.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/questline/scoreboard/internal/app"
	"github.com/questline/scoreboard/internal/domain/rank"
	"github.com/questline/scoreboard/pkg/logger"
)

const defaultMaxLimit = 100

// Engine is the slice of the score engine the API serves.
type Engine interface {
	Health(ctx context.Context) error
	RecordTask(ctx context.Context, username, taskID string) (bool, error)
	RecordMetric(ctx context.Context, username string, metric float64) error
	ReassignTeam(ctx context.Context, username, team string) error
	Standings(ctx context.Context, username string, fresh bool) (app.Delta, error)
	Leaderboard(ctx context.Context, limit int) ([]rank.Entry, bool, error)
	Teams(ctx context.Context) ([]rank.TeamEntry, bool, error)
	Stats() app.Stats
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine   Engine
	log      logger.Logger
	maxLimit int
}

// New creates a Server over engine.
func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		maxLimit: defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/progress", func(r chi.Router) {
		r.Post("/", s.handleProgress)
		r.Post("/{username}/sync", s.handleSync)
	})

	r.Get("/standings/{username}", s.handleStandings)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/teams", s.handleTeams)

	return r
}
