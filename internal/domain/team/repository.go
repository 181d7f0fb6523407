package team

import "context"

// Repository caches team lists per league season.
type Repository interface {
	ListByLeague(ctx context.Context, leagueID int64, season int) ([]Team, bool, error)
	ReplaceByLeague(ctx context.Context, leagueID int64, season int, teams []Team) error
}
