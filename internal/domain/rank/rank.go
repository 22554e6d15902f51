// Package rank turns a participant snapshot into individual and team standings.
//
// Ranking is a pure computation over an immutable snapshot copy. The caller
// may supply an optimistic override so a just-submitted score is reflected
// before the backing store's read path catches up; the snapshot itself is
// never mutated.
package rank

import (
	"sort"
	"time"

	"github.com/questline/scoreboard/internal/domain/model"
	"github.com/questline/scoreboard/pkg/metrics"
)

// Override substitutes one participant's not-yet-confirmed state into the
// ranking. If the username is absent from the snapshot a synthetic record
// is inserted.
type Override struct {
	Username         string
	Score            float64
	TeamName         string
	CompletedTaskIDs []string
}

// Entry is one row of the sorted individual standings.
type Entry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	TeamName string  `json:"team_name,omitempty"`
}

// TeamEntry is one row of the sorted team standings.
type TeamEntry struct {
	Rank      int     `json:"rank"`
	TeamName  string  `json:"team_name"`
	MeanScore float64 `json:"mean_score"`
	Members   int     `json:"members"`
}

// Result carries the full standings plus the caller's position.
type Result struct {
	Username string
	Score    float64
	// Rank is the caller's 1-based position; 0 means not yet ranked.
	Rank     int
	TeamName string
	// TeamRank is 0 when the caller has no team or the team has no members.
	TeamRank         int
	Users            []Entry
	Teams            []TeamEntry
	CompletedTaskIDs []string
}

// Standings sorts participants by score descending and computes the caller's
// individual and team rank. Ties keep the snapshot's relative order; no
// tie-break field is invented. Participants with an empty team name are
// excluded from team aggregation.
func Standings(participants []model.Participant, override *Override, username string) Result {
	start := time.Now()
	defer func() {
		metrics.RecordRankComputation(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	rows := apply(participants, override)

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})

	res := Result{Username: username}
	res.Users = make([]Entry, len(rows))
	for i, p := range rows {
		res.Users[i] = Entry{
			Rank:     i + 1,
			Username: p.Username,
			Score:    p.Score,
			TeamName: p.TeamName,
		}
		if p.Username == username {
			res.Rank = i + 1
			res.Score = p.Score
			res.TeamName = p.TeamName
			res.CompletedTaskIDs = p.CompletedTaskIDs
		}
	}

	res.Teams = teamStandings(rows)
	if res.TeamName != "" {
		for _, te := range res.Teams {
			if te.TeamName == res.TeamName {
				res.TeamRank = te.Rank
				break
			}
		}
	}
	return res
}

// apply copies the snapshot rows and merges the override, inserting a
// synthetic record when the overridden username is absent.
func apply(participants []model.Participant, override *Override) []model.Participant {
	rows := make([]model.Participant, len(participants))
	copy(rows, participants)

	if override == nil {
		return rows
	}
	for i := range rows {
		if rows[i].Username == override.Username {
			rows[i].Score = override.Score
			if override.TeamName != "" {
				rows[i].TeamName = override.TeamName
			}
			if override.CompletedTaskIDs != nil {
				rows[i].CompletedTaskIDs = override.CompletedTaskIDs
			}
			return rows
		}
	}
	return append(rows, model.Participant{
		Username:         override.Username,
		Score:            override.Score,
		TeamName:         override.TeamName,
		CompletedTaskIDs: override.CompletedTaskIDs,
	})
}

// teamStandings groups rows by team name, ranks teams by mean score
// descending and keeps first-appearance order on ties.
func teamStandings(rows []model.Participant) []TeamEntry {
	type agg struct {
		sum     float64
		members int
	}
	byTeam := make(map[string]*agg)
	var order []string
	for _, p := range rows {
		if p.TeamName == "" {
			continue
		}
		a, ok := byTeam[p.TeamName]
		if !ok {
			a = &agg{}
			byTeam[p.TeamName] = a
			order = append(order, p.TeamName)
		}
		a.sum += p.Score
		a.members++
	}

	teams := make([]TeamEntry, 0, len(order))
	for _, name := range order {
		a := byTeam[name]
		teams = append(teams, TeamEntry{
			TeamName:  name,
			MeanScore: a.sum / float64(a.members),
			Members:   a.members,
		})
	}
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].MeanScore > teams[j].MeanScore
	})
	for i := range teams {
		teams[i].Rank = i + 1
	}
	return teams
}
