package user

import "context"

type Repository interface {
	GetByID(ctx context.Context, userID string) (User, bool, error)
	ListByIDs(ctx context.Context, userIDs []string) ([]User, error)
	// ListByFavoriteTeams returns users following at least one of teamIDs.
	ListByFavoriteTeams(ctx context.Context, teamIDs []int64) ([]User, error)
	AddDeviceToken(ctx context.Context, userID, token string) error
	// RemoveDeviceTokens strips tokens from whichever users own them and
	// returns the number of users touched.
	RemoveDeviceTokens(ctx context.Context, tokens []string) (int64, error)
}
