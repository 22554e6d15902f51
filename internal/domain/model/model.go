// Package model contains the table and participant types shared across layers.
package model

import "time"

// TableMeta describes a logical leaderboard table.
type TableMeta struct {
	TableID     string
	DisplayName string
	CreatedAt   time.Time
	IsArchived  bool
	// UserCount counts distinct participant rows ever inserted. It is
	// maintained additively by the store and never decremented.
	UserCount int
}

// Participant is one row per (table, username).
type Participant struct {
	Username string
	TableID  string

	// Score is the authoritative last-written composite score.
	Score    float64
	TeamName string

	// CompletedTaskIDs is a de-duplicated, grow-only set of task ids.
	CompletedTaskIDs []string
	TasksCompleted   int
	TotalTasks       int

	// Metric is the primary performance metric, typically in [0,1].
	Metric float64

	LastUpdated time.Time
}

// TablePatch carries the mutable table metadata fields. Nil means unchanged.
type TablePatch struct {
	DisplayName *string
	IsArchived  *bool
}

// Empty reports whether the patch changes nothing.
func (p TablePatch) Empty() bool {
	return p.DisplayName == nil && p.IsArchived == nil
}
