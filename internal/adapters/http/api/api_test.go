package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questline/scoreboard/internal/adapters/storeapi"
	"github.com/questline/scoreboard/internal/app"
	"github.com/questline/scoreboard/internal/domain/rank"
)

type fakeEngine struct {
	healthErr error
	tasks     []string
	metrics   []float64
	teams     []string
	taskNewly bool
	taskErr   error
	delta     app.Delta
	deltaErr  error
	entries   []rank.Entry
	teamRows  []rank.TeamEntry
	stale     bool
	lastFresh bool
	lastLimit int
}

func (f *fakeEngine) Health(context.Context) error { return f.healthErr }

func (f *fakeEngine) RecordTask(_ context.Context, username, taskID string) (bool, error) {
	if f.taskErr != nil {
		return false, f.taskErr
	}
	f.tasks = append(f.tasks, username+"/"+taskID)
	return f.taskNewly, nil
}

func (f *fakeEngine) RecordMetric(_ context.Context, _ string, metric float64) error {
	f.metrics = append(f.metrics, metric)
	return nil
}

func (f *fakeEngine) ReassignTeam(_ context.Context, _, team string) error {
	f.teams = append(f.teams, team)
	return nil
}

func (f *fakeEngine) Standings(_ context.Context, username string, fresh bool) (app.Delta, error) {
	f.lastFresh = fresh
	if f.deltaErr != nil {
		return app.Delta{}, f.deltaErr
	}
	d := f.delta
	d.Username = username
	return d, nil
}

func (f *fakeEngine) Leaderboard(_ context.Context, limit int) ([]rank.Entry, bool, error) {
	f.lastLimit = limit
	return f.entries, f.stale, nil
}

func (f *fakeEngine) Teams(context.Context) ([]rank.TeamEntry, bool, error) {
	return f.teamRows, f.stale, nil
}

func (f *fakeEngine) Stats() app.Stats {
	return app.Stats{TableID: "course-a", TotalTasks: 20}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	eng := &fakeEngine{}
	h := New(eng).Router()

	rec := doRequest(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	eng.healthErr = fmt.Errorf("%w: store down", storeapi.ErrUnavailable)
	rec = doRequest(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProgressRouting(t *testing.T) {
	eng := &fakeEngine{taskNewly: true}
	h := New(eng).Router()

	metric := 0.8
	team := "Red"
	rec := doRequest(t, h, http.MethodPost, "/progress", progressRequest{
		Username: "alice",
		TaskID:   "t1",
		Metric:   &metric,
		Team:     &team,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[progressResponse](t, rec)
	assert.True(t, resp.TaskCompleted)
	assert.True(t, resp.MetricRecorded)
	assert.True(t, resp.TeamAssigned)

	assert.Equal(t, []string{"alice/t1"}, eng.tasks)
	assert.Equal(t, []float64{0.8}, eng.metrics)
	assert.Equal(t, []string{"Red"}, eng.teams)
}

func TestProgressValidation(t *testing.T) {
	h := New(&fakeEngine{}).Router()

	rec := doRequest(t, h, http.MethodPost, "/progress", progressRequest{TaskID: "t1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/progress", progressRequest{Username: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/progress", bytes.NewReader([]byte("{broken")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProgressErrorMapping(t *testing.T) {
	eng := &fakeEngine{taskErr: app.ErrInvalidTask}
	h := New(eng).Router()

	rec := doRequest(t, h, http.MethodPost, "/progress", progressRequest{Username: "alice", TaskID: "t1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	eng.taskErr = fmt.Errorf("%w: store down", storeapi.ErrUnavailable)
	rec = doRequest(t, h, http.MethodPost, "/progress", progressRequest{Username: "alice", TaskID: "t1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStandings(t *testing.T) {
	eng := &fakeEngine{delta: app.Delta{NewScore: 0.20, NewRank: 2}}
	h := New(eng).Router()

	rec := doRequest(t, h, http.MethodGet, "/standings/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, eng.lastFresh)

	d := decode[app.Delta](t, rec)
	assert.Equal(t, "alice", d.Username)
	assert.Equal(t, 2, d.NewRank)

	rec = doRequest(t, h, http.MethodGet, "/standings/alice?fresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, eng.lastFresh)
}

func TestSyncForcesFreshStandings(t *testing.T) {
	eng := &fakeEngine{delta: app.Delta{NewScore: 0.20}}
	h := New(eng).Router()

	rec := doRequest(t, h, http.MethodPost, "/progress/alice/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, eng.lastFresh)

	d := decode[app.Delta](t, rec)
	assert.Equal(t, "alice", d.Username)
}

func TestStandingsUnavailable(t *testing.T) {
	eng := &fakeEngine{deltaErr: fmt.Errorf("%w: no snapshot", storeapi.ErrUnavailable)}
	h := New(eng).Router()

	rec := doRequest(t, h, http.MethodGet, "/standings/alice", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLeaderboardLimits(t *testing.T) {
	eng := &fakeEngine{entries: []rank.Entry{{Rank: 1, Username: "bob", Score: 0.3}}}
	h := New(eng, WithMaxLimit(50)).Router()

	rec := doRequest(t, h, http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, eng.lastLimit, "default to the cap")

	rec = doRequest(t, h, http.MethodGet, "/leaderboard?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, eng.lastLimit)

	rec = doRequest(t, h, http.MethodGet, "/leaderboard?limit=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, eng.lastLimit, "requests above the cap are clamped")

	rec = doRequest(t, h, http.MethodGet, "/leaderboard?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/leaderboard?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardEmptyIsAnArray(t *testing.T) {
	h := New(&fakeEngine{}).Router()
	rec := doRequest(t, h, http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestTeams(t *testing.T) {
	eng := &fakeEngine{
		teamRows: []rank.TeamEntry{{Rank: 1, TeamName: "Red", MeanScore: 0.2, Members: 1}},
		stale:    true,
	}
	h := New(eng).Router()

	rec := doRequest(t, h, http.MethodGet, "/teams", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[teamsResponse](t, rec)
	require.Len(t, resp.Teams, 1)
	assert.Equal(t, "Red", resp.Teams[0].TeamName)
	assert.True(t, resp.Stale)
}

func TestStatsEndpoint(t *testing.T) {
	h := New(&fakeEngine{}).Router()
	rec := doRequest(t, h, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[app.Stats](t, rec)
	assert.Equal(t, "course-a", stats.TableID)
	assert.Equal(t, 20, stats.TotalTasks)
}
