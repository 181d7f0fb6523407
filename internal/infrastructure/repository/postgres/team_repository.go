package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/rugby-live/internal/domain/team"
	qb "github.com/riskibarqy/rugby-live/internal/platform/querybuilder"
)

const teamsTable = "teams"

// TeamRepository persists provider team lists per league season.
type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// ListByLeague reports found=false when the season has never been stored.
func (r *TeamRepository) ListByLeague(ctx context.Context, leagueID int64, season int) ([]team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns).From(teamsTable).
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("season", season),
		).
		OrderBy("name", "id").
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build select teams by league query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, false, fmt.Errorf("select teams by league: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, true, nil
}

func (r *TeamRepository) ReplaceByLeague(ctx context.Context, leagueID int64, season int, teams []team.Team) error {
	remove, removeArgs, err := qb.Delete(teamsTable).
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("season", season),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete teams query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace teams: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, remove, removeArgs...); err != nil {
		return fmt.Errorf("delete teams: %w", err)
	}

	for _, item := range teams {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("team %d: %w", item.ID, err)
		}
		logo := ""
		if item.LogoURL != nil {
			logo = *item.LogoURL
		}
		insert, args, err := qb.InsertInto(teamsTable).
			Columns("id", "league_id", "season", "name", "code", "country", "founded", "national", "logo_url").
			Values(item.ID, leagueID, season, item.Name, nullableText(item.Code), nullableText(item.Country), nullableInt(item.Founded), item.National, nullableText(logo)).
			Suffix("ON CONFLICT (league_id, season, id) DO NOTHING").
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert team query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert team %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace teams: %w", err)
	}
	return nil
}
