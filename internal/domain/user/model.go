package user

import (
	"fmt"
	"slices"
	"strings"
)

// NotificationKind selects which match transitions a user wants pushed.
type NotificationKind string

const (
	KindMatchStart  NotificationKind = "match_start"
	KindScoreUpdate NotificationKind = "score_update"
	KindMatchEnd    NotificationKind = "match_end"
	KindEvent       NotificationKind = "event"
)

type NotificationPreferences struct {
	MatchStart   bool `json:"matchStart" db:"notify_match_start"`
	ScoreUpdates bool `json:"scoreUpdates" db:"notify_score_updates"`
	MatchEnd     bool `json:"matchEnd" db:"notify_match_end"`
	Events       bool `json:"events" db:"notify_events"`
}

func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{MatchStart: true, ScoreUpdates: true, MatchEnd: true}
}

func (p NotificationPreferences) Allows(kind NotificationKind) bool {
	switch kind {
	case KindMatchStart:
		return p.MatchStart
	case KindScoreUpdate:
		return p.ScoreUpdates
	case KindMatchEnd:
		return p.MatchEnd
	case KindEvent:
		return p.Events
	default:
		return false
	}
}

// User is the app profile as far as notifications are concerned.
type User struct {
	ID            string                  `json:"id"`
	DisplayName   string                  `json:"displayName,omitempty"`
	Email         string                  `json:"email,omitempty"`
	Preferences   NotificationPreferences `json:"notificationPreferences"`
	FavoriteTeams []int64                 `json:"favoriteTeams"`
	DeviceTokens  []string                `json:"deviceTokens"`
}

func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

func (u User) FollowsAny(teamIDs ...int64) bool {
	for _, id := range teamIDs {
		if id > 0 && slices.Contains(u.FavoriteTeams, id) {
			return true
		}
	}
	return false
}
