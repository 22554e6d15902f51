package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/questline/scoreboard/internal/adapters/snapcache"
	"github.com/questline/scoreboard/internal/adapters/storeapi"
	"github.com/questline/scoreboard/internal/adapters/syncer"
	"github.com/questline/scoreboard/internal/app"
	"github.com/questline/scoreboard/internal/domain/rank"
	"github.com/questline/scoreboard/pkg/logger"
)

type progressRequest struct {
	Username string   `json:"username"`
	TaskID   string   `json:"task_id,omitempty"`
	Metric   *float64 `json:"metric,omitempty"`
	Team     *string  `json:"team,omitempty"`
}

type progressResponse struct {
	Username       string `json:"username"`
	TaskCompleted  bool   `json:"task_completed,omitempty"`
	MetricRecorded bool   `json:"metric_recorded,omitempty"`
	TeamAssigned   bool   `json:"team_assigned,omitempty"`
}

type leaderboardResponse struct {
	Entries []rank.Entry `json:"entries"`
	Stale   bool         `json:"stale,omitempty"`
}

type teamsResponse struct {
	Teams []rank.TeamEntry `json:"teams"`
	Stale bool             `json:"stale,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Health(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

// handleProgress applies one update batch for a participant. Metric is
// applied before the task so a task completing in the same request scores
// against the new metric.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.Username == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username is required"})
		return
	}
	if req.TaskID == "" && req.Metric == nil && req.Team == nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "nothing to record"})
		return
	}

	ctx := r.Context()
	resp := progressResponse{Username: req.Username}

	if req.Metric != nil {
		if err := s.engine.RecordMetric(ctx, req.Username, *req.Metric); err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.MetricRecorded = true
	}
	if req.TaskID != "" {
		newly, err := s.engine.RecordTask(ctx, req.Username, req.TaskID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.TaskCompleted = newly
	}
	if req.Team != nil {
		if err := s.engine.ReassignTeam(ctx, req.Username, *req.Team); err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.TeamAssigned = true
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleSync forces the participant's pending write out and returns
// standings confirmed against the store.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	delta, err := s.engine.Standings(r.Context(), username, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, delta)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	fresh := r.URL.Query().Get("fresh") == "true"
	delta, err := s.engine.Standings(r.Context(), username, fresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, delta)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := s.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	entries, stale, err := s.engine.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []rank.Entry{}
	}
	s.writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries, Stale: stale})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams, stale, err := s.engine.Teams(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if teams == nil {
		teams = []rank.TeamEntry{}
	}
	s.writeJSON(w, http.StatusOK, teamsResponse{Teams: teams, Stale: stale})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storeapi.ErrInvalidArgument),
		errors.Is(err, app.ErrInvalidTask),
		errors.Is(err, app.ErrInvalidMetric):
		status = http.StatusBadRequest
	case errors.Is(err, storeapi.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storeapi.ErrUnavailable),
		errors.Is(err, snapcache.ErrRebuildFailed),
		errors.Is(err, syncer.ErrFlushFailed),
		errors.Is(err, app.ErrNotStarted):
		status = http.StatusServiceUnavailable
	}

	if s.log != nil && status >= 500 {
		s.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
