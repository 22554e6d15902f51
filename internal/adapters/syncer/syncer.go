// Package syncer debounces participant writes to the backing store.
//
// Score updates arrive in bursts: a participant completing tasks produces
// many small state changes in quick succession, and writing each one would
// hammer the store for no benefit since only the latest state matters. The
// syncer keeps at most one pending row per participant, replaces it on every
// new update, and writes it only after a quiet interval passes with no
// further updates. A forced flush bypasses the wait for read-your-write
// paths. Failed writes are never dropped; the pending row is restored and
// retried with a growing delay.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/questline/scoreboard/internal/domain/model"
	"github.com/questline/scoreboard/pkg/logger"
	"github.com/questline/scoreboard/pkg/metrics"
)

// Default syncer configuration constants.
const (
	defaultQuietInterval = 2 * time.Second
	defaultMaxBackoff    = 30 * time.Second
	defaultWorkers       = 4
	defaultQueueSize     = 1024
	defaultWriteTimeout  = 15 * time.Second
)

// Writer persists one participant row.
type Writer interface {
	PutUser(ctx context.Context, tableID, username string, p model.Participant) (model.Participant, error)
}

type entry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  *model.Participant
	timer    *time.Timer
	inFlight bool
	failures int
}

// Syncer coalesces per-participant writes behind a quiet interval.
type Syncer struct {
	writer       Writer
	tableID      string
	quiet        time.Duration
	maxBackoff   time.Duration
	writeTimeout time.Duration
	pool         pond.Pool
	entries      *xsync.Map[string, *entry]
	log          logger.Logger
	closed       atomic.Bool

	workers   int
	queueSize int
}

// New creates a Syncer writing rows of tableID through writer.
func New(writer Writer, tableID string, opts ...Option) *Syncer {
	s := &Syncer{
		writer:       writer,
		tableID:      tableID,
		quiet:        defaultQuietInterval,
		maxBackoff:   defaultMaxBackoff,
		writeTimeout: defaultWriteTimeout,
		entries:      xsync.NewMap[string, *entry](),
		workers:      defaultWorkers,
		queueSize:    defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = pond.NewPool(s.workers, pond.WithQueueSize(s.queueSize))
	return s
}

// Enqueue records the latest row for a participant and (re)starts the quiet
// timer. Newer rows replace older unflushed ones, so a burst of updates
// collapses into a single write carrying the final state.
func (s *Syncer) Enqueue(username string, p model.Participant) error {
	if s.closed.Load() {
		return ErrClosed
	}
	e := s.entry(username)

	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.RecordSyncEvent()
	if e.pending != nil {
		metrics.RecordSyncCollapsed()
	} else {
		metrics.UpdateSyncPending(1)
	}
	e.pending = &p
	s.schedule(username, e, s.quiet)
	return nil
}

// Flush writes the participant's pending row immediately, waiting out any
// write already in flight so the result reflects this row, not an older one.
// A nil return with nothing pending means the store already has the latest
// state.
func (s *Syncer) Flush(ctx context.Context, username string) error {
	e, ok := s.entries.Load(username)
	if !ok {
		return nil
	}

	e.mu.Lock()
	for e.inFlight {
		e.cond.Wait()
	}
	if e.pending == nil {
		e.mu.Unlock()
		return nil
	}
	p := e.pending
	e.pending = nil
	metrics.UpdateSyncPending(-1)
	if e.timer != nil {
		e.timer.Stop()
	}
	e.inFlight = true
	e.mu.Unlock()

	err := s.write(ctx, username, *p)

	e.mu.Lock()
	e.inFlight = false
	if err != nil {
		if e.pending == nil {
			e.pending = p
			metrics.UpdateSyncPending(1)
		}
		e.failures++
		s.schedule(username, e, s.backoffDelay(e.failures))
	} else {
		e.failures = 0
		if e.pending != nil {
			s.schedule(username, e, s.quiet)
		}
	}
	e.cond.Broadcast()
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFlushFailed, username, err)
	}
	return nil
}

// Pending reports how many participants have an unflushed row.
func (s *Syncer) Pending() int {
	n := 0
	s.entries.Range(func(_ string, e *entry) bool {
		e.mu.Lock()
		if e.pending != nil {
			n++
		}
		e.mu.Unlock()
		return true
	})
	return n
}

// Close flushes every pending row and stops the workers. The syncer accepts
// no further updates afterwards.
func (s *Syncer) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	s.entries.Range(func(username string, e *entry) bool {
		e.mu.Lock()
		if e.timer != nil {
			e.timer.Stop()
		}
		e.mu.Unlock()
		if err := s.Flush(ctx, username); err != nil {
			errs = append(errs, err)
		}
		return true
	})

	s.pool.StopAndWait()
	return errors.Join(errs...)
}

// entry returns the per-username state, fully constructed before publish.
func (s *Syncer) entry(username string) *entry {
	fresh := &entry{}
	fresh.cond = sync.NewCond(&fresh.mu)
	e, _ := s.entries.LoadOrStore(username, fresh)
	return e
}

// schedule arms or rewinds the entry's timer. Caller holds e.mu.
func (s *Syncer) schedule(username string, e *entry, d time.Duration) {
	if e.timer != nil {
		e.timer.Reset(d)
		return
	}
	e.timer = time.AfterFunc(d, func() {
		if s.closed.Load() {
			return
		}
		s.pool.Submit(func() { s.flush(username, e) })
	})
}

// flush is the timer-driven write path, run on the worker pool.
func (s *Syncer) flush(username string, e *entry) {
	e.mu.Lock()
	if e.inFlight || e.pending == nil {
		// A forced flush beat us to it, or nothing is left to write.
		e.mu.Unlock()
		return
	}
	p := e.pending
	e.pending = nil
	metrics.UpdateSyncPending(-1)
	e.inFlight = true
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	err := s.write(ctx, username, *p)
	cancel()

	e.mu.Lock()
	e.inFlight = false
	if err != nil {
		if e.pending == nil {
			e.pending = p
			metrics.UpdateSyncPending(1)
		}
		e.failures++
		delay := s.backoffDelay(e.failures)
		if s.log != nil {
			s.log.Warn(ctx, "flush failed, will retry",
				logger.String("username", username),
				logger.Int("failures", e.failures),
				logger.Error(err))
		}
		s.schedule(username, e, delay)
	} else {
		e.failures = 0
		if e.pending != nil {
			s.schedule(username, e, s.quiet)
		}
	}
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (s *Syncer) write(ctx context.Context, username string, p model.Participant) error {
	_, err := s.writer.PutUser(ctx, s.tableID, username, p)
	if err != nil {
		metrics.RecordSyncFlushError()
		return err
	}
	metrics.RecordSyncFlush()
	return nil
}

func (s *Syncer) backoffDelay(failures int) time.Duration {
	d := s.quiet
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= s.maxBackoff {
			return s.maxBackoff
		}
	}
	if d > s.maxBackoff {
		return s.maxBackoff
	}
	return d
}
