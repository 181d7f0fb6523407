package fanout

import (
	"context"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
)

// ActivityState is the fixed-shape state a live activity surface renders.
type ActivityState struct {
	MatchID          int64     `json:"matchId"`
	HomeScore        int       `json:"homeScore"`
	AwayScore        int       `json:"awayScore"`
	Status           string    `json:"status"`
	ElapsedMinutes   *int      `json:"elapsedMinutes,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
	EventDescription *string   `json:"eventDescription,omitempty"`
}

// LiveActivityUpdater pushes state to whatever live activity surface is active for a match.
type LiveActivityUpdater interface {
	UpdateLiveActivity(ctx context.Context, state ActivityState) error
}

// NewActivityState renders m, describing latest when it is not nil.
func NewActivityState(m match.Match, latest *matchevent.Event, now time.Time) ActivityState {
	home, away := m.Score()
	state := ActivityState{
		MatchID:        m.ID,
		HomeScore:      home,
		AwayScore:      away,
		Status:         m.Status,
		ElapsedMinutes: m.Elapsed,
		UpdatedAt:      now.UTC(),
	}
	if !m.UpdatedAt.IsZero() {
		state.UpdatedAt = m.UpdatedAt.UTC()
	}
	if latest != nil {
		description := latest.Description()
		if description != "" {
			state.EventDescription = &description
		}
	}
	return state
}
