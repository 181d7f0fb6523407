package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/team"
)

const teamColumns = "id, league_id, season, name, code, country, founded, national, logo_url, updated_at"

type teamTableModel struct {
	ID        int64          `db:"id"`
	LeagueID  int64          `db:"league_id"`
	Season    int            `db:"season"`
	Name      string         `db:"name"`
	Code      sql.NullString `db:"code"`
	Country   sql.NullString `db:"country"`
	Founded   sql.NullInt64  `db:"founded"`
	National  bool           `db:"national"`
	LogoURL   sql.NullString `db:"logo_url"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (m teamTableModel) toDomain() team.Team {
	out := team.Team{
		ID:       m.ID,
		Name:     m.Name,
		Code:     nullStringValue(m.Code),
		Country:  nullStringValue(m.Country),
		Founded:  int(nullInt64Value(m.Founded)),
		National: m.National,
	}
	if m.LogoURL.Valid && m.LogoURL.String != "" {
		logo := m.LogoURL.String
		out.LogoURL = &logo
	}
	return out
}

func nullableText(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullableInt(value int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(value), Valid: value != 0}
}
