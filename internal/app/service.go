// Package app hosts the score engine: the stateful coordinator between
// local task progress, the debounced store writer, the snapshot cache and
// the rank computation.
//
// Per-participant state (metric, team, completed tasks) lives in memory and
// is hydrated lazily from the store on first touch, so a restarted engine
// picks up where the participant left off. Every local change recomputes
// the composite score and hands the full row to the syncer; reads combine
// the latest cached snapshot with an optimistic override of the caller's
// local state so a participant always sees their own updates immediately.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/questline/scoreboard/internal/adapters/snapcache"
	"github.com/questline/scoreboard/internal/adapters/storeapi"
	"github.com/questline/scoreboard/internal/adapters/syncer"
	"github.com/questline/scoreboard/internal/domain/model"
	"github.com/questline/scoreboard/internal/domain/rank"
	"github.com/questline/scoreboard/internal/domain/score"
	"github.com/questline/scoreboard/internal/domain/taskset"
	"github.com/questline/scoreboard/pkg/logger"
)

// Store is the slice of the table service the engine depends on.
type Store interface {
	Health(ctx context.Context) error
	EnsureTable(ctx context.Context, tableID, displayName string) (model.TableMeta, error)
	PatchTable(ctx context.Context, tableID string, patch model.TablePatch) error
	GetUser(ctx context.Context, tableID, username string) (model.Participant, error)
	PutUser(ctx context.Context, tableID, username string, p model.Participant) (model.Participant, error)
	AllUsers(ctx context.Context, tableID string) ([]model.Participant, error)
}

type userState struct {
	mu       sync.Mutex
	hydrated bool
	metric   float64
	team     string
}

// Service is the score engine for one leaderboard table.
type Service struct {
	store Store
	cache *snapcache.Cache
	sync  *syncer.Syncer
	tasks *taskset.Set
	users *xsync.Map[string, *userState]
	log   logger.Logger

	tableID     string
	displayName string
	totalTasks  int

	started atomic.Bool
	metaMu  sync.RWMutex
	meta    model.TableMeta
}

// New creates a Service over store. The total task count must be positive;
// it is the denominator of every composite score.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("nil store")
	}
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.totalTasks <= 0 {
		return nil, fmt.Errorf("%w: total tasks must be positive, got %d", score.ErrInvalidConfiguration, cfg.totalTasks)
	}

	s := &Service{
		store:       store,
		tasks:       taskset.New(),
		users:       xsync.NewMap[string, *userState](),
		log:         cfg.log,
		tableID:     cfg.tableID,
		displayName: cfg.displayName,
		totalTasks:  cfg.totalTasks,
	}
	s.cache = snapcache.New(store,
		snapcache.WithTTL(cfg.cacheTTL),
		snapcache.WithLogger(cfg.log))
	s.sync = syncer.New(store, cfg.tableID,
		syncer.WithQuietInterval(cfg.quiet),
		syncer.WithWorkers(cfg.flushWorkers),
		syncer.WithLogger(cfg.log))
	return s, nil
}

// Start ensures the backing table exists. Safe to call once; operations
// before a successful Start fail with ErrNotStarted.
func (s *Service) Start(ctx context.Context) error {
	meta, err := s.store.EnsureTable(ctx, s.tableID, s.displayName)
	if err != nil {
		return fmt.Errorf("ensure table %s: %w", s.tableID, err)
	}
	s.metaMu.Lock()
	s.meta = meta
	s.metaMu.Unlock()
	s.started.Store(true)
	if s.log != nil {
		s.log.Info(ctx, "engine started",
			logger.String("table", meta.TableID),
			logger.Int("users", meta.UserCount),
			logger.Int("total_tasks", s.totalTasks))
	}
	return nil
}

// Stop flushes pending writes and releases the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.started.Store(false)
	return s.sync.Close(ctx)
}

// Health checks connectivity to the backing store.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

// RecordTask marks a task completed for a participant. Returns true when
// the task was newly completed; repeats are idempotent and trigger no write.
func (s *Service) RecordTask(ctx context.Context, username, taskID string) (bool, error) {
	if taskID == "" {
		return false, ErrInvalidTask
	}
	st, err := s.hydrate(ctx, username)
	if err != nil {
		return false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !s.tasks.Complete(username, taskID) {
		return false, nil
	}
	return true, s.push(username, st)
}

// RecordMetric sets a participant's primary metric and resyncs their score.
func (s *Service) RecordMetric(ctx context.Context, username string, metric float64) error {
	if math.IsNaN(metric) || math.IsInf(metric, 0) {
		return ErrInvalidMetric
	}
	st, err := s.hydrate(ctx, username)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.metric = metric
	return s.push(username, st)
}

// ReassignTeam moves a participant to a team (empty clears it) and writes
// the row through immediately so team standings update without waiting out
// the quiet interval.
func (s *Service) ReassignTeam(ctx context.Context, username, team string) error {
	st, err := s.hydrate(ctx, username)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.team = team
	err = s.push(username, st)
	st.mu.Unlock()
	if err != nil {
		return err
	}
	return s.sync.Flush(ctx, username)
}

// RenameTable updates the table's display name.
func (s *Service) RenameTable(ctx context.Context, name string) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	if name == "" {
		return fmt.Errorf("%w: empty display name", storeapi.ErrInvalidArgument)
	}
	if err := s.store.PatchTable(ctx, s.tableID, model.TablePatch{DisplayName: &name}); err != nil {
		return err
	}
	s.metaMu.Lock()
	s.meta.DisplayName = name
	s.metaMu.Unlock()
	return nil
}

// ArchiveTable marks the table archived (or restores it). Archival is a
// metadata flag only; the engine keeps serving reads.
func (s *Service) ArchiveTable(ctx context.Context, archived bool) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	if err := s.store.PatchTable(ctx, s.tableID, model.TablePatch{IsArchived: &archived}); err != nil {
		return err
	}
	s.metaMu.Lock()
	s.meta.IsArchived = archived
	s.metaMu.Unlock()
	return nil
}

// Standings reports a participant's position before and after their local
// updates. With fresh set, pending writes are flushed and the snapshot
// rebuilt first so the "new" side reflects confirmed store state.
func (s *Service) Standings(ctx context.Context, username string, fresh bool) (Delta, error) {
	if !s.started.Load() {
		return Delta{}, ErrNotStarted
	}
	st, err := s.hydrate(ctx, username)
	if err != nil {
		return Delta{}, err
	}

	prevSnap, err := s.cache.Get(ctx, s.tableID)
	if err != nil {
		return Delta{}, err
	}
	prev := rank.Standings(prevSnap.Participants, nil, username)

	snap := prevSnap
	stale := prevSnap.Stale
	if fresh {
		if err := s.sync.Flush(ctx, username); err != nil {
			if s.log != nil {
				s.log.Warn(ctx, "forced flush failed, serving local state",
					logger.String("username", username), logger.Error(err))
			}
			stale = true
		} else if rebuilt, err := s.cache.Refresh(ctx, s.tableID); err == nil {
			snap = rebuilt
			stale = rebuilt.Stale
		} else {
			stale = true
		}
	}

	st.mu.Lock()
	override, err := s.override(username, st)
	st.mu.Unlock()
	if err != nil {
		return Delta{}, err
	}

	cur := rank.Standings(snap.Participants, &override, username)
	return Delta{
		Username:         username,
		PreviousScore:    prev.Score,
		NewScore:         cur.Score,
		PreviousRank:     prev.Rank,
		NewRank:          cur.Rank,
		PreviousTeamRank: prev.TeamRank,
		NewTeamRank:      cur.TeamRank,
		Users:            cur.Users,
		Teams:            cur.Teams,
		CompletedTaskIDs: cur.CompletedTaskIDs,
		Stale:            stale,
	}, nil
}

// Leaderboard returns the top limit rows of the individual standings, with
// a staleness flag for the snapshot they came from. limit <= 0 means all.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]rank.Entry, bool, error) {
	if !s.started.Load() {
		return nil, false, ErrNotStarted
	}
	snap, err := s.cache.Get(ctx, s.tableID)
	if err != nil {
		return nil, false, err
	}
	res := rank.Standings(snap.Participants, nil, "")
	entries := res.Users
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, snap.Stale, nil
}

// Teams returns the team standings.
func (s *Service) Teams(ctx context.Context) ([]rank.TeamEntry, bool, error) {
	if !s.started.Load() {
		return nil, false, ErrNotStarted
	}
	snap, err := s.cache.Get(ctx, s.tableID)
	if err != nil {
		return nil, false, err
	}
	res := rank.Standings(snap.Participants, nil, "")
	return res.Teams, snap.Stale, nil
}

// Stats reports the engine's internal counters.
func (s *Service) Stats() Stats {
	s.metaMu.RLock()
	name := s.meta.DisplayName
	s.metaMu.RUnlock()
	if name == "" {
		name = s.displayName
	}
	st := Stats{
		TableID:       s.tableID,
		DisplayName:   name,
		TotalTasks:    s.totalTasks,
		TrackedUsers:  s.tasks.Users(),
		PendingWrites: s.sync.Pending(),
	}
	if snap, ok := s.cache.Peek(s.tableID); ok {
		st.SnapshotUsers = len(snap.Participants)
		st.SnapshotAgeMS = snap.Age().Milliseconds()
	}
	return st
}

// hydrate returns the participant's local state, loading it from the store
// on first touch. A missing store row means a brand-new participant.
func (s *Service) hydrate(ctx context.Context, username string) (*userState, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %v", storeapi.ErrInvalidArgument, err)
	}

	st, _ := s.users.LoadOrStore(username, &userState{})
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.hydrated {
		return st, nil
	}

	row, err := s.store.GetUser(ctx, s.tableID, username)
	switch {
	case err == nil:
		st.metric = row.Metric
		st.team = row.TeamName
		s.tasks.Seed(username, row.CompletedTaskIDs)
	case errors.Is(err, storeapi.ErrNotFound):
		// New participant, nothing to restore.
	default:
		return nil, fmt.Errorf("hydrate %s: %w", username, err)
	}
	st.hydrated = true
	return st, nil
}

// push recomputes the composite score from local state and enqueues the
// row. Caller holds st.mu.
func (s *Service) push(username string, st *userState) error {
	row, err := s.localRow(username, st)
	if err != nil {
		return err
	}
	return s.sync.Enqueue(username, row)
}

func (s *Service) localRow(username string, st *userState) (model.Participant, error) {
	done := s.tasks.Count(username)
	composite, err := score.Composite(st.metric, done, s.totalTasks)
	if err != nil {
		return model.Participant{}, err
	}
	return model.Participant{
		Username:         username,
		TableID:          s.tableID,
		Score:            composite,
		TeamName:         st.team,
		CompletedTaskIDs: s.tasks.Tasks(username),
		TasksCompleted:   done,
		TotalTasks:       s.totalTasks,
		Metric:           st.metric,
	}, nil
}

func (s *Service) override(username string, st *userState) (rank.Override, error) {
	row, err := s.localRow(username, st)
	if err != nil {
		return rank.Override{}, err
	}
	return rank.Override{
		Username:         username,
		Score:            row.Score,
		TeamName:         row.TeamName,
		CompletedTaskIDs: row.CompletedTaskIDs,
	}, nil
}
