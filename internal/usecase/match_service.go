package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/league"
	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/standing"
	"github.com/riskibarqy/rugby-live/internal/domain/team"
	"github.com/riskibarqy/rugby-live/internal/normalize"
	"github.com/riskibarqy/rugby-live/internal/platform/cache"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

const dateLayout = "2006-01-02"

type MatchServiceConfig struct {
	CacheTTL     time.Duration
	LiveCacheTTL time.Duration
	Logger       *logging.Logger
}

// MatchService serves match, standing and team lookups from the rugby data
// provider through a TTL cache.
type MatchService struct {
	provider   SportsDataProvider
	leagueRepo league.Repository
	teamRepo   team.Repository
	cache      *cache.Store
	cacheTTL   time.Duration
	liveTTL    time.Duration
	logger     *logging.Logger
	now        func() time.Time
}

type MatchQuery struct {
	Date     string
	LeagueID int64
	Season   int
	Live     bool
}

func NewMatchService(provider SportsDataProvider, leagueRepo league.Repository, teamRepo team.Repository, store *cache.Store, cfg MatchServiceConfig) *MatchService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	liveTTL := cfg.LiveCacheTTL
	if liveTTL <= 0 {
		liveTTL = 15 * time.Second
	}
	if store == nil {
		store = cache.NewStore(cacheTTL)
	}

	return &MatchService{
		provider:   provider,
		leagueRepo: leagueRepo,
		teamRepo:   teamRepo,
		cache:      store,
		cacheTTL:   cacheTTL,
		liveTTL:    liveTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *MatchService) ListLeagues(ctx context.Context) ([]league.League, error) {
	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	return leagues, nil
}

// ListMatches defaults to today's games (UTC) when no filter is given.
func (s *MatchService) ListMatches(ctx context.Context, query MatchQuery) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListMatches")
	defer span.End()

	query.Date = strings.TrimSpace(query.Date)
	if query.Date != "" {
		if _, err := time.Parse(dateLayout, query.Date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	if query.LeagueID < 0 || query.Season < 0 {
		return nil, fmt.Errorf("%w: league and season must be positive", ErrInvalidInput)
	}
	if query.LeagueID > 0 && query.Season == 0 {
		season, err := s.resolveSeason(ctx, query.LeagueID)
		if err != nil {
			return nil, err
		}
		query.Season = season
	}
	// The provider rejects /games without a filter and has no live parameter,
	// so live listings are today's games filtered by status below.
	if query.Date == "" && query.LeagueID == 0 {
		query.Date = s.now().UTC().Format(dateLayout)
	}

	ttl := s.cacheTTL
	if query.Live {
		ttl = s.liveTTL
	}
	key := "games:" + query.Date + ":" + strconv.FormatInt(query.LeagueID, 10) + ":" + strconv.Itoa(query.Season) + ":" + strconv.FormatBool(query.Live)
	value, err := s.cache.GetOrLoadWithTTL(ctx, key, ttl, func(ctx context.Context) (any, error) {
		items, err := s.provider.Games(ctx, GamesQuery(query))
		if err != nil {
			return nil, err
		}
		return normalize.Matches(items), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	matches, _ := value.([]match.Match)
	if query.Live {
		live := matches[:0:0]
		for _, item := range matches {
			if match.IsLiveStatus(item.Status) {
				live = append(live, item)
			}
		}
		matches = live
	}
	return matches, nil
}

func (s *MatchService) GetMatch(ctx context.Context, matchID int64) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.GetMatch")
	defer span.End()

	if matchID <= 0 {
		return match.Match{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	key := "game:" + strconv.FormatInt(matchID, 10)
	value, err := s.cache.GetOrLoadWithTTL(ctx, key, s.liveTTL, func(ctx context.Context) (any, error) {
		doc, found, err := s.provider.Game(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: match=%d", ErrNotFound, matchID)
		}
		return normalize.Match(doc), nil
	})
	if err != nil {
		return match.Match{}, fmt.Errorf("get game: %w", err)
	}

	out, _ := value.(match.Match)
	return out, nil
}

func (s *MatchService) ListStandings(ctx context.Context, leagueID int64, season int) ([]standing.Standing, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListStandings")
	defer span.End()

	leagueID, season, err := s.leagueSeason(ctx, leagueID, season)
	if err != nil {
		return nil, err
	}

	key := "standings:" + strconv.FormatInt(leagueID, 10) + ":" + strconv.Itoa(season)
	value, err := s.cache.GetOrLoadWithTTL(ctx, key, s.cacheTTL, func(ctx context.Context) (any, error) {
		payload, err := s.provider.Standings(ctx, leagueID, season)
		if err != nil {
			return nil, err
		}
		return normalize.Standings(payload), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}

	rows, _ := value.([]standing.Standing)
	return rows, nil
}

// ListTeams reads the team repository first and refreshes it from the provider on a miss.
func (s *MatchService) ListTeams(ctx context.Context, leagueID int64, season int) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListTeams")
	defer span.End()

	leagueID, season, err := s.leagueSeason(ctx, leagueID, season)
	if err != nil {
		return nil, err
	}

	teams, found, err := s.teamRepo.ListByLeague(ctx, leagueID, season)
	if err != nil {
		s.logger.WarnContext(ctx, "read cached teams failed", "league_id", leagueID, "season", season, "error", err)
	}
	if found && err == nil {
		return teams, nil
	}

	items, err := s.provider.Teams(ctx, leagueID, season)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams = normalize.Teams(items)
	if err := s.teamRepo.ReplaceByLeague(ctx, leagueID, season, teams); err != nil {
		s.logger.WarnContext(ctx, "store teams failed", "league_id", leagueID, "season", season, "error", err)
	}
	return teams, nil
}

func (s *MatchService) leagueSeason(ctx context.Context, leagueID int64, season int) (int64, int, error) {
	if leagueID <= 0 {
		return 0, 0, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}
	if season < 0 {
		return 0, 0, fmt.Errorf("%w: season must be positive", ErrInvalidInput)
	}
	if season == 0 {
		resolved, err := s.resolveSeason(ctx, leagueID)
		if err != nil {
			return 0, 0, err
		}
		season = resolved
	}
	return leagueID, season, nil
}

// resolveSeason reads the current season of a catalog league.
func (s *MatchService) resolveSeason(ctx context.Context, leagueID int64) (int, error) {
	item, exists, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return 0, fmt.Errorf("get league: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: season is required for league=%d", ErrInvalidInput, leagueID)
	}
	return item.Season, nil
}
