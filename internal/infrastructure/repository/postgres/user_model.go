package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/riskibarqy/rugby-live/internal/domain/user"
)

const userColumns = "id, display_name, email, notify_match_start, notify_score_updates, notify_match_end, notify_events, favorite_teams, device_tokens, created_at, updated_at"

type userTableModel struct {
	ID                 string         `db:"id"`
	DisplayName        sql.NullString `db:"display_name"`
	Email              sql.NullString `db:"email"`
	NotifyMatchStart   bool           `db:"notify_match_start"`
	NotifyScoreUpdates bool           `db:"notify_score_updates"`
	NotifyMatchEnd     bool           `db:"notify_match_end"`
	NotifyEvents       bool           `db:"notify_events"`
	FavoriteTeams      pq.Int64Array  `db:"favorite_teams"`
	DeviceTokens       pq.StringArray `db:"device_tokens"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (m userTableModel) toDomain() user.User {
	return user.User{
		ID:          m.ID,
		DisplayName: nullStringValue(m.DisplayName),
		Email:       nullStringValue(m.Email),
		Preferences: user.NotificationPreferences{
			MatchStart:   m.NotifyMatchStart,
			ScoreUpdates: m.NotifyScoreUpdates,
			MatchEnd:     m.NotifyMatchEnd,
			Events:       m.NotifyEvents,
		},
		FavoriteTeams: []int64(m.FavoriteTeams),
		DeviceTokens:  []string(m.DeviceTokens),
	}
}
