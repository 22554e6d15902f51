package storeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questline/scoreboard/internal/domain/model"
)

// fakeStore is a minimal in-memory rendition of the remote table service.
type fakeStore struct {
	mu     sync.Mutex
	tables map[string]tableWire
	users  map[string]map[string]userWire // tableID -> username -> row
	puts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: make(map[string]tableWire),
		users:  make(map[string]map[string]userWire),
	}
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/tables", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			f.createTable(w, r)
		case http.MethodGet:
			f.listTables(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/tables/", f.tableSubtree)
	return mux
}

func (f *fakeStore) createTable(w http.ResponseWriter, r *http.Request) {
	var in tableWire
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.TableID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[in.TableID]; ok {
		w.WriteHeader(http.StatusConflict)
		return
	}
	in.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	f.tables[in.TableID] = in
	writeJSON(w, in)
}

func (f *fakeStore) listTables(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := tablePageWire{}
	for _, t := range f.tables {
		page.Tables = append(page.Tables, t)
	}
	writeJSON(w, page)
}

func (f *fakeStore) tableSubtree(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/tables/"), "/")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case len(parts) == 1: // /tables/{id}
		id := parts[0]
		t, ok := f.tables[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, t)
		case http.MethodPatch:
			var patch tablePatchWire
			_ = json.NewDecoder(r.Body).Decode(&patch)
			if patch.DisplayName != nil {
				t.DisplayName = *patch.DisplayName
			}
			if patch.IsArchived != nil {
				t.IsArchived = *patch.IsArchived
			}
			f.tables[id] = t
			writeJSON(w, t)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case len(parts) == 2 && parts[1] == "users": // /tables/{id}/users
		f.listUsers(w, r, parts[0])

	case len(parts) == 3 && parts[1] == "users": // /tables/{id}/users/{name}
		f.userRow(w, r, parts[0], parts[2])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeStore) listUsers(w http.ResponseWriter, r *http.Request, tableID string) {
	rows := f.users[tableID]
	var names []string
	for name := range rows {
		names = append(names, name)
	}
	// Deterministic order for pagination.
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	limit := len(names)
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	start := 0
	if s := r.URL.Query().Get("lastKey"); s != "" {
		start, _ = strconv.Atoi(s)
	}
	end := start + limit
	if end > len(names) {
		end = len(names)
	}
	page := userPageWire{}
	for _, name := range names[start:end] {
		page.Users = append(page.Users, rows[name])
	}
	if end < len(names) {
		page.LastKey = strconv.Itoa(end)
	}
	writeJSON(w, page)
}

func (f *fakeStore) userRow(w http.ResponseWriter, r *http.Request, tableID, username string) {
	switch r.Method {
	case http.MethodPut:
		var in userWire
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.puts++
		rows, ok := f.users[tableID]
		if !ok {
			rows = make(map[string]userWire)
			f.users[tableID] = rows
		}
		if _, exists := rows[username]; !exists {
			t := f.tables[tableID]
			t.UserCount++
			f.tables[tableID] = t
		}
		in.Username = username
		in.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		rows[username] = in
		writeJSON(w, in)
	case http.MethodGet:
		row, ok := f.users[tableID][username]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, row)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{WithRetryPolicy(RetryPolicy{Attempts: 3, Base: time.Millisecond, Cap: 5 * time.Millisecond})}
	return New(srv.URL, append(base, opts...)...)
}

func TestTableLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeStore()
	c := newTestClient(t, fake.handler())

	meta, err := c.CreateTable(ctx, "course-a", "Course A")
	require.NoError(t, err)
	assert.Equal(t, "course-a", meta.TableID)
	assert.Equal(t, "Course A", meta.DisplayName)
	assert.False(t, meta.CreatedAt.IsZero())

	_, err = c.CreateTable(ctx, "course-a", "Course A")
	require.ErrorIs(t, err, ErrAlreadyExists)

	got, err := c.GetTable(ctx, "course-a")
	require.NoError(t, err)
	assert.Equal(t, meta.TableID, got.TableID)

	_, err = c.GetTable(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	name := "Renamed"
	archived := true
	require.NoError(t, c.PatchTable(ctx, "course-a", model.TablePatch{DisplayName: &name, IsArchived: &archived}))
	got, err = c.GetTable(ctx, "course-a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.DisplayName)
	assert.True(t, got.IsArchived)

	// Empty patch is a no-op without a round trip.
	require.NoError(t, c.PatchTable(ctx, "course-a", model.TablePatch{}))
}

func TestEnsureTable(t *testing.T) {
	ctx := context.Background()
	fake := newFakeStore()
	c := newTestClient(t, fake.handler())

	first, err := c.EnsureTable(ctx, "course-a", "Course A")
	require.NoError(t, err)
	assert.Equal(t, "course-a", first.TableID)

	// Second ensure hits the AlreadyExists path and resolves via get.
	second, err := c.EnsureTable(ctx, "course-a", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Course A", second.DisplayName)
}

func TestPutUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeStore()
	c := newTestClient(t, fake.handler())

	_, err := c.EnsureTable(ctx, "course-a", "Course A")
	require.NoError(t, err)

	in := model.Participant{
		Score:            0.20,
		TeamName:         "Red",
		CompletedTaskIDs: []string{"t1", "t2", "t3", "t4", "t5"},
		TasksCompleted:   5,
		TotalTasks:       20,
		Metric:           0.8,
	}
	written, err := c.PutUser(ctx, "course-a", "alice", in)
	require.NoError(t, err)
	assert.Equal(t, "alice", written.Username)

	// Re-read returns exactly what was written, no coercion.
	got, err := c.GetUser(ctx, "course-a", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, in.Score, got.Score)
	assert.Equal(t, in.TeamName, got.TeamName)
	assert.Equal(t, in.CompletedTaskIDs, got.CompletedTaskIDs)
	assert.Equal(t, in.TasksCompleted, got.TasksCompleted)
	assert.Equal(t, in.TotalTasks, got.TotalTasks)
	assert.Equal(t, in.Metric, got.Metric)
	assert.False(t, got.LastUpdated.IsZero())

	_, err = c.GetUser(ctx, "course-a", "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserCountIncrementsOncePerUser(t *testing.T) {
	ctx := context.Background()
	fake := newFakeStore()
	c := newTestClient(t, fake.handler())

	_, err := c.EnsureTable(ctx, "course-a", "Course A")
	require.NoError(t, err)

	p := model.Participant{TotalTasks: 20}
	for i := 0; i < 3; i++ {
		_, err = c.PutUser(ctx, "course-a", "alice", p)
		require.NoError(t, err)
	}
	_, err = c.PutUser(ctx, "course-a", "bob", p)
	require.NoError(t, err)

	meta, err := c.GetTable(ctx, "course-a")
	require.NoError(t, err)
	assert.Equal(t, 2, meta.UserCount)
}

func TestInvalidIdentifiersRejectedLocally(t *testing.T) {
	ctx := context.Background()
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, h)

	_, err := c.CreateTable(ctx, "bad id", "x")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = c.GetUser(ctx, "course-a", "no/slash")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = c.PutUser(ctx, "course-a", "alice", model.Participant{TasksCompleted: 5, TotalTasks: 3})
	require.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, calls, "invalid input must not reach the wire")
}

func TestRetryOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	var calls int
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, tableWire{TableID: "course-a", DisplayName: "Course A"})
	})
	c := newTestClient(t, h)

	meta, err := c.GetTable(ctx, "course-a")
	require.NoError(t, err)
	assert.Equal(t, "course-a", meta.TableID)
	assert.Equal(t, 3, calls)
}

func TestRetriesExhaustedSurfaceUnavailable(t *testing.T) {
	ctx := context.Background()
	var calls int
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(t, h)

	_, err := c.GetTable(ctx, "course-a")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	var calls int
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	})
	c := newTestClient(t, h)

	_, err := c.GetTable(ctx, "course-a")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 1, calls)
}

func TestConnectionFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := New(srv.URL, WithRetryPolicy(RetryPolicy{Attempts: 2, Base: time.Millisecond}))
	_, err := c.GetTable(context.Background(), "course-a")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestIterateUsersFollowsPagination(t *testing.T) {
	ctx := context.Background()
	fake := newFakeStore()
	c := newTestClient(t, fake.handler(), WithPageLimit(3))

	_, err := c.EnsureTable(ctx, "course-a", "Course A")
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		_, err = c.PutUser(ctx, "course-a", fmt.Sprintf("user%02d", i), model.Participant{TotalTasks: 20, Score: float64(i)})
		require.NoError(t, err)
	}

	it := c.IterateUsers("course-a")
	all, err := it.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, all, 8)
	for i, p := range all {
		assert.Equal(t, fmt.Sprintf("user%02d", i), p.Username)
	}

	// The sequence is restartable.
	it.Reset()
	again, err := it.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(all), len(again))

	all2, err := c.AllUsers(ctx, "course-a")
	require.NoError(t, err)
	assert.Len(t, all2, 8)
}
