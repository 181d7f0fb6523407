package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/rugby-live/internal/domain/league"
	"github.com/riskibarqy/rugby-live/internal/domain/team"
	leaguemock "github.com/riskibarqy/rugby-live/internal/mocks/domain/league"
	teammock "github.com/riskibarqy/rugby-live/internal/mocks/domain/team"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

type providerStub struct {
	gamesCalls atomic.Int32
	lastQuery  GamesQuery
	games      []map[string]any
	game       map[string]any
	standings  []any
	teams      []map[string]any
	err        error
}

func (p *providerStub) Games(_ context.Context, query GamesQuery) ([]map[string]any, error) {
	p.gamesCalls.Add(1)
	p.lastQuery = query
	return p.games, p.err
}

func (p *providerStub) Game(_ context.Context, _ int64) (map[string]any, bool, error) {
	return p.game, p.game != nil, p.err
}

func (p *providerStub) Standings(_ context.Context, _ int64, _ int) ([]any, error) {
	return p.standings, p.err
}

func (p *providerStub) Teams(_ context.Context, _ int64, _ int) ([]map[string]any, error) {
	return p.teams, p.err
}

func TestMatchService_ListMatches_DefaultsToTodayAndCaches(t *testing.T) {
	t.Parallel()

	provider := &providerStub{games: []map[string]any{
		{"id": float64(1), "status": map[string]any{"short": "1H"}},
		{"id": float64(2), "status": map[string]any{"short": "NS"}},
	}}
	service := NewMatchService(provider, leaguemock.NewRepository(t), teammock.NewRepository(t), nil, MatchServiceConfig{Logger: logging.NewNop()})
	service.now = func() time.Time { return time.Date(2025, 3, 15, 22, 0, 0, 0, time.UTC) }

	got, err := service.ListMatches(context.Background(), MatchQuery{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "2025-03-15", provider.lastQuery.Date)

	_, err = service.ListMatches(context.Background(), MatchQuery{})
	require.NoError(t, err)
	require.Equal(t, int32(1), provider.gamesCalls.Load(), "second call must be served from cache")

	live, err := service.ListMatches(context.Background(), MatchQuery{Live: true})
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, int64(1), live[0].ID)
	require.Equal(t, GamesQuery{Date: "2025-03-15", Live: true}, provider.lastQuery, "live listing must still send a date filter")
}

func TestMatchService_ListMatches_ResolvesSeasonFromCatalog(t *testing.T) {
	t.Parallel()

	leagues := leaguemock.NewRepository(t)
	provider := &providerStub{}
	service := NewMatchService(provider, leagues, teammock.NewRepository(t), nil, MatchServiceConfig{Logger: logging.NewNop()})

	leagues.On("GetByID", mock.Anything, int64(16)).Return(league.League{ID: 16, Season: 2024}, true, nil).Once()
	leagues.On("GetByID", mock.Anything, int64(99)).Return(league.League{}, false, nil).Once()

	_, err := service.ListMatches(context.Background(), MatchQuery{LeagueID: 16})
	require.NoError(t, err)
	require.Equal(t, 2024, provider.lastQuery.Season)

	_, err = service.ListMatches(context.Background(), MatchQuery{LeagueID: 99})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.ListMatches(context.Background(), MatchQuery{Date: "15/03/2025"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMatchService_GetMatch(t *testing.T) {
	t.Parallel()

	provider := &providerStub{}
	service := NewMatchService(provider, leaguemock.NewRepository(t), teammock.NewRepository(t), nil, MatchServiceConfig{Logger: logging.NewNop()})

	_, err := service.GetMatch(context.Background(), 5)
	require.ErrorIs(t, err, ErrNotFound)

	provider.game = map[string]any{"id": float64(5), "teams": map[string]any{"home": map[string]any{"name": "Racing 92"}}}
	got, err := service.GetMatch(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "Racing 92", got.Home.Name)

	_, err = service.GetMatch(context.Background(), 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMatchService_ListStandings(t *testing.T) {
	t.Parallel()

	provider := &providerStub{standings: []any{[]any{
		map[string]any{"position": float64(1), "team": map[string]any{"id": float64(107), "name": "Toulouse"}, "points": float64(70)},
	}}}
	service := NewMatchService(provider, leaguemock.NewRepository(t), teammock.NewRepository(t), nil, MatchServiceConfig{Logger: logging.NewNop()})

	got, err := service.ListStandings(context.Background(), 16, 2024)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 70, got[0].Points)
	require.Nil(t, got[0].GoalDiff)

	_, err = service.ListStandings(context.Background(), 0, 2024)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMatchService_ListTeams_RefreshesRepositoryOnMiss(t *testing.T) {
	t.Parallel()

	teams := teammock.NewRepository(t)
	provider := &providerStub{teams: []map[string]any{{"id": float64(107), "name": "Toulouse"}}}
	service := NewMatchService(provider, leaguemock.NewRepository(t), teams, nil, MatchServiceConfig{Logger: logging.NewNop()})

	teams.On("ListByLeague", mock.Anything, int64(16), 2024).Return([]team.Team(nil), false, nil).Once()
	teams.On("ReplaceByLeague", mock.Anything, int64(16), 2024, mock.MatchedBy(func(v []team.Team) bool {
		return len(v) == 1 && v[0].Name == "Toulouse"
	})).Return(nil).Once()

	got, err := service.ListTeams(context.Background(), 16, 2024)
	require.NoError(t, err)
	require.Len(t, got, 1)

	provider.err = errors.New("boom")
	teams.On("ListByLeague", mock.Anything, int64(16), 2025).Return([]team.Team(nil), false, nil).Once()
	_, err = service.ListTeams(context.Background(), 16, 2025)
	require.Error(t, err)
}
