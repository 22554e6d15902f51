// Package snapcache holds time-bounded, immutable snapshots of a table's
// participant rows.
//
// Ranking reads the whole table, which is the one expensive call against the
// backing store. The cache amortizes it: within the TTL every read is served
// from the same snapshot, and when a rebuild fails the previous snapshot is
// served marked stale instead of failing the read. Snapshots are never
// mutated after capture; callers receive copies they may sort freely.
package snapcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/questline/scoreboard/internal/domain/model"
	"github.com/questline/scoreboard/pkg/logger"
	"github.com/questline/scoreboard/pkg/metrics"
)

const defaultTTL = 45 * time.Second

// Source loads the full participant set of a table.
type Source interface {
	AllUsers(ctx context.Context, tableID string) ([]model.Participant, error)
}

// Snapshot is one immutable capture of a table's rows.
type Snapshot struct {
	TableID      string
	Participants []model.Participant
	TakenAt      time.Time
	// Stale marks a snapshot served past its TTL because the rebuild that
	// should have replaced it failed.
	Stale bool
}

// Age reports how long ago the snapshot was captured.
func (s Snapshot) Age() time.Duration {
	return time.Since(s.TakenAt)
}

type entry struct {
	mu   sync.Mutex // serializes rebuilds for one table
	snap *Snapshot
}

// Cache serves per-table snapshots with a fixed TTL.
type Cache struct {
	source  Source
	ttl     time.Duration
	entries *xsync.Map[string, *entry]
	log     logger.Logger
	now     func() time.Time
}

// New creates a Cache reading through to source.
func New(source Source, opts ...Option) *Cache {
	c := &Cache{
		source:  source,
		ttl:     defaultTTL,
		entries: xsync.NewMap[string, *entry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current snapshot for a table, rebuilding it when the
// cached one is older than the TTL. If the rebuild fails and an earlier
// snapshot exists, that snapshot is returned marked Stale; with no earlier
// snapshot the rebuild error surfaces.
func (c *Cache) Get(ctx context.Context, tableID string) (Snapshot, error) {
	e, _ := c.entries.LoadOrStore(tableID, &entry{})

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snap != nil && c.now().Sub(e.snap.TakenAt) < c.ttl {
		metrics.RecordCacheHit()
		return e.snap.copy(), nil
	}
	metrics.RecordCacheMiss()

	snap, err := c.rebuild(ctx, tableID)
	if err != nil {
		if e.snap != nil {
			metrics.RecordCacheStaleServed()
			if c.log != nil {
				c.log.Warn(ctx, "serving stale snapshot after rebuild failure",
					logger.String("table", tableID), logger.Error(err))
			}
			stale := e.snap.copy()
			stale.Stale = true
			return stale, nil
		}
		return Snapshot{}, fmt.Errorf("%w: %v", ErrRebuildFailed, err)
	}
	e.snap = snap
	return snap.copy(), nil
}

// Refresh rebuilds the snapshot unconditionally, ignoring the TTL. Used
// after a forced write so the next read observes it.
func (c *Cache) Refresh(ctx context.Context, tableID string) (Snapshot, error) {
	e, _ := c.entries.LoadOrStore(tableID, &entry{})

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := c.rebuild(ctx, tableID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrRebuildFailed, err)
	}
	e.snap = snap
	return snap.copy(), nil
}

// Peek returns the cached snapshot without rebuilding, however old it is.
// ok is false when no snapshot has ever been captured for the table.
func (c *Cache) Peek(tableID string) (Snapshot, bool) {
	e, ok := c.entries.Load(tableID)
	if !ok {
		return Snapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap == nil {
		return Snapshot{}, false
	}
	return e.snap.copy(), true
}

// Invalidate drops the cached snapshot for a table.
func (c *Cache) Invalidate(tableID string) {
	c.entries.Delete(tableID)
}

func (c *Cache) rebuild(ctx context.Context, tableID string) (*Snapshot, error) {
	start := time.Now()
	rows, err := c.source.AllUsers(ctx, tableID)
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheRebuild(float64(time.Since(start).Nanoseconds()) / 1e6)
	metrics.UpdateSnapshotParticipants(tableID, len(rows))
	return &Snapshot{
		TableID:      tableID,
		Participants: rows,
		TakenAt:      c.now(),
	}, nil
}

// copy returns a Snapshot whose participant slice the caller owns.
func (s *Snapshot) copy() Snapshot {
	out := *s
	out.Participants = make([]model.Participant, len(s.Participants))
	copy(out.Participants, s.Participants)
	return out
}
