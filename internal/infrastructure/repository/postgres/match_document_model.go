package postgres

import (
	"database/sql"
	"time"
)

type matchDocumentTableModel struct {
	MatchID   int64     `db:"match_id"`
	Document  []byte    `db:"document"`
	UpdatedAt time.Time `db:"updated_at"`
}

type matchEventTableModel struct {
	ID         int64          `db:"id"`
	MatchID    int64          `db:"match_id"`
	EventType  string         `db:"event_type"`
	EventTime  string         `db:"event_time"`
	Team       string         `db:"team"`
	PlayerID   sql.NullInt64  `db:"player_id"`
	PlayerName sql.NullString `db:"player_name"`
	Detail     sql.NullString `db:"detail"`
	CreatedAt  time.Time      `db:"created_at"`
}

// toDocument renders the row in the shape the normalizer reads from live documents.
func (m matchEventTableModel) toDocument() map[string]any {
	doc := map[string]any{
		"type": m.EventType,
		"time": m.EventTime,
		"team": m.Team,
	}
	if m.PlayerName.Valid && m.PlayerName.String != "" {
		player := map[string]any{"name": m.PlayerName.String}
		if m.PlayerID.Valid {
			player["id"] = m.PlayerID.Int64
		}
		doc["player"] = player
	}
	if m.Detail.Valid && m.Detail.String != "" {
		doc["detail"] = m.Detail.String
	}
	return doc
}
