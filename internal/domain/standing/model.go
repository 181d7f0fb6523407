package standing

import "github.com/riskibarqy/rugby-live/internal/domain/match"

// Standing represents a league table row for one team.
type Standing struct {
	Position     int           `json:"position"`
	Team         match.TeamRef `json:"team"`
	Group        string        `json:"group,omitempty"`
	Played       int           `json:"played"`
	Won          int           `json:"won"`
	Drawn        int           `json:"drawn"`
	Lost         int           `json:"lost"`
	Points       int           `json:"points"`
	GoalsFor     *int          `json:"goalsFor,omitempty"`
	GoalsAgainst *int          `json:"goalsAgainst,omitempty"`
	// GoalDiff is nil when no source provides it; it never defaults to zero.
	GoalDiff    *int   `json:"goalDiff"`
	Form        string `json:"form,omitempty"`
	Description string `json:"description,omitempty"`
}
