package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/rugby-live/internal/domain/user"
	qb "github.com/riskibarqy/rugby-live/internal/platform/querybuilder"
)

const usersTable = "app_users"

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (user.User, bool, error) {
	query, args, err := qb.Select(userColumns).From(usersTable).
		Where(qb.Eq("id", userID)).
		ToSQL()
	if err != nil {
		return user.User{}, false, fmt.Errorf("build get user query: %w", err)
	}

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("get user: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *UserRepository) ListByIDs(ctx context.Context, userIDs []string) ([]user.User, error) {
	return r.list(ctx, "list users by ids", qb.AnyOf("id", userIDs))
}

func (r *UserRepository) ListByFavoriteTeams(ctx context.Context, teamIDs []int64) ([]user.User, error) {
	ids := make([]int64, 0, len(teamIDs))
	for _, id := range teamIDs {
		if id > 0 {
			ids = append(ids, id)
		}
	}
	return r.list(ctx, "list users by favorite teams", qb.Overlaps("favorite_teams", ids))
}

func (r *UserRepository) list(ctx context.Context, op string, condition qb.Condition) ([]user.User, error) {
	query, args, err := qb.Select(userColumns).From(usersTable).
		Where(condition).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []userTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// AddDeviceToken attaches token to userID, creating the user row with default
// preferences if needed. A token moves away from any other user holding it.
func (r *UserRepository) AddDeviceToken(ctx context.Context, userID, token string) error {
	detach, detachArgs, err := qb.Update(usersTable).
		SetExpr("device_tokens", "array_remove(device_tokens, ?)", token).
		SetExpr("updated_at", "NOW()").
		Where(qb.Expr("? = ANY(device_tokens)", token), qb.Expr("id <> ?", userID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build detach device token query: %w", err)
	}

	prefs := user.DefaultPreferences()
	attach, attachArgs, err := qb.InsertInto(usersTable).
		Columns("id", "notify_match_start", "notify_score_updates", "notify_match_end", "notify_events", "favorite_teams", "device_tokens").
		Values(userID, prefs.MatchStart, prefs.ScoreUpdates, prefs.MatchEnd, prefs.Events, pq.Array([]int64{}), pq.Array([]string{token})).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			device_tokens = CASE WHEN ? = ANY(app_users.device_tokens) THEN app_users.device_tokens ELSE array_append(app_users.device_tokens, ?) END,
			updated_at = NOW()`, token, token).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build attach device token query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add device token: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, detach, detachArgs...); err != nil {
		return fmt.Errorf("detach device token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, attach, attachArgs...); err != nil {
		return fmt.Errorf("attach device token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add device token: %w", err)
	}
	return nil
}

func (r *UserRepository) RemoveDeviceTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	query, args, err := qb.Update(usersTable).
		SetExpr("device_tokens", "ARRAY(SELECT t FROM unnest(device_tokens) AS t WHERE NOT (t = ANY(?)))", pq.Array(tokens)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Overlaps("device_tokens", tokens)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build remove device tokens query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("remove device tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove device tokens rows affected: %w", err)
	}
	return affected, nil
}
