package usecase

import "context"

// GamesQuery mirrors the filters the rugby data provider accepts for games.
type GamesQuery struct {
	Date     string
	LeagueID int64
	Season   int
	Live     bool
}

// SportsDataProvider returns raw provider documents; normalization happens in the use cases.
type SportsDataProvider interface {
	Games(ctx context.Context, query GamesQuery) ([]map[string]any, error)
	Game(ctx context.Context, gameID int64) (map[string]any, bool, error)
	// Standings returns the response array as-is; rows may be nested several levels deep.
	Standings(ctx context.Context, leagueID int64, season int) ([]any, error)
	Teams(ctx context.Context, leagueID int64, season int) ([]map[string]any, error)
}

// LiveWatcher controls live subscriptions. livefeed.Listener implements it.
type LiveWatcher interface {
	Start(ctx context.Context, matchID int64) (bool, error)
	Stop(matchID int64) bool
	Active() []int64
}
