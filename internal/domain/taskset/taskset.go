// Package taskset tracks each participant's completed-task set.
//
// Task completions are idempotent: recording the same task id twice is a
// no-op. Sets only grow within a session; tasks are never un-completed.
package taskset

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Set holds per-username completed-task sets, safe for concurrent use.
type Set struct {
	users *xsync.Map[string, *tasks]
}

type tasks struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// New creates an empty Set.
func New() *Set {
	return &Set{users: xsync.NewMap[string, *tasks]()}
}

// Complete atomically records a completed task id for username.
// Returns true if the task was newly recorded, false if already present.
func (s *Set) Complete(username, taskID string) bool {
	t := s.forUser(username)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[taskID]; ok {
		return false
	}
	t.ids[taskID] = struct{}{}
	return true
}

// Seed merges previously persisted task ids into username's set. Used when
// reconciling local state with the authoritative store.
func (s *Set) Seed(username string, ids []string) {
	t := s.forUser(username)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
}

// Count returns the number of completed tasks for username.
func (s *Set) Count(username string) int {
	t, ok := s.users.Load(username)
	if !ok {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

// Tasks returns a sorted copy of username's completed task ids.
func (s *Set) Tasks(username string) []string {
	t, ok := s.users.Load(username)
	if !ok {
		return nil
	}
	t.mu.RLock()
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Users returns the number of usernames with at least one recorded entry.
func (s *Set) Users() int {
	return s.users.Size()
}

func (s *Set) forUser(username string) *tasks {
	t, _ := s.users.LoadOrStore(username, &tasks{ids: make(map[string]struct{})})
	return t
}
