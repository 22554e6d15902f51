package app

import "github.com/questline/scoreboard/internal/domain/rank"

// Delta reports a participant's standings before and after their latest
// local updates were taken into account.
type Delta struct {
	Username         string           `json:"username"`
	PreviousScore    float64          `json:"previous_score"`
	NewScore         float64          `json:"new_score"`
	PreviousRank     int              `json:"previous_rank"`
	NewRank          int              `json:"new_rank"`
	PreviousTeamRank int              `json:"previous_team_rank,omitempty"`
	NewTeamRank      int              `json:"new_team_rank,omitempty"`
	Users            []rank.Entry     `json:"users"`
	Teams            []rank.TeamEntry `json:"teams,omitempty"`
	CompletedTaskIDs []string         `json:"completed_task_ids,omitempty"`
	// Stale is set when the standings were computed from an expired
	// snapshot because the store could not be reached.
	Stale bool `json:"stale,omitempty"`
}

// Stats is a point-in-time view of the engine's internals.
type Stats struct {
	TableID       string `json:"table_id"`
	DisplayName   string `json:"display_name"`
	TotalTasks    int    `json:"total_tasks"`
	TrackedUsers  int    `json:"tracked_users"`
	PendingWrites int    `json:"pending_writes"`
	SnapshotUsers int    `json:"snapshot_users"`
	SnapshotAgeMS int64  `json:"snapshot_age_ms"`
}
