package storeapi

import (
	"time"

	"github.com/questline/scoreboard/internal/domain/model"
)

// Wire shapes mirror the table service's JSON contract. Timestamps travel
// as RFC3339 strings; unparseable values decode to the zero time rather
// than failing the whole row.

type tableWire struct {
	TableID     string `json:"tableId"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt,omitempty"`
	IsArchived  bool   `json:"isArchived"`
	UserCount   int    `json:"userCount"`
}

type tablePageWire struct {
	Tables  []tableWire `json:"tables"`
	LastKey string      `json:"lastKey,omitempty"`
}

type tablePatchWire struct {
	DisplayName *string `json:"displayName,omitempty"`
	IsArchived  *bool   `json:"isArchived,omitempty"`
}

type userWire struct {
	Username         string   `json:"username"`
	Score            float64  `json:"score"`
	TeamName         string   `json:"teamName,omitempty"`
	CompletedTaskIDs []string `json:"completedTaskIds,omitempty"`
	TasksCompleted   int      `json:"tasksCompleted"`
	TotalTasks       int      `json:"totalTasks"`
	Metric           float64  `json:"metric"`
	LastUpdated      string   `json:"lastUpdated,omitempty"`
}

type userPageWire struct {
	Users   []userWire `json:"users"`
	LastKey string     `json:"lastKey,omitempty"`
}

func (w tableWire) toMeta() model.TableMeta {
	return model.TableMeta{
		TableID:     w.TableID,
		DisplayName: w.DisplayName,
		CreatedAt:   parseTime(w.CreatedAt),
		IsArchived:  w.IsArchived,
		UserCount:   w.UserCount,
	}
}

func (w userWire) toParticipant(tableID string) model.Participant {
	return model.Participant{
		Username:         w.Username,
		TableID:          tableID,
		Score:            w.Score,
		TeamName:         w.TeamName,
		CompletedTaskIDs: w.CompletedTaskIDs,
		TasksCompleted:   w.TasksCompleted,
		TotalTasks:       w.TotalTasks,
		Metric:           w.Metric,
		LastUpdated:      parseTime(w.LastUpdated),
	}
}

func toUserWire(p model.Participant) userWire {
	return userWire{
		Username:         p.Username,
		Score:            p.Score,
		TeamName:         p.TeamName,
		CompletedTaskIDs: p.CompletedTaskIDs,
		TasksCompleted:   p.TasksCompleted,
		TotalTasks:       p.TotalTasks,
		Metric:           p.Metric,
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
