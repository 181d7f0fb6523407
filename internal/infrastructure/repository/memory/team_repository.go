package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/team"
)

type teamSeasonKey struct {
	leagueID int64
	season   int
}

type teamSeason struct {
	teams    []team.Team
	storedAt time.Time
}

// TeamRepository keeps team lists per league season. Entries older than ttl
// are reported as missing so callers refetch them; ttl <= 0 keeps them forever.
type TeamRepository struct {
	mu      sync.RWMutex
	seasons map[teamSeasonKey]teamSeason
	ttl     time.Duration
	now     func() time.Time
}

func NewTeamRepository(ttl time.Duration) *TeamRepository {
	return &TeamRepository{
		seasons: make(map[teamSeasonKey]teamSeason),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *TeamRepository) ListByLeague(_ context.Context, leagueID int64, season int) ([]team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.seasons[teamSeasonKey{leagueID: leagueID, season: season}]
	if !ok {
		return nil, false, nil
	}
	if r.ttl > 0 && r.now().Sub(entry.storedAt) > r.ttl {
		return nil, false, nil
	}

	out := make([]team.Team, 0, len(entry.teams))
	out = append(out, entry.teams...)
	return out, true, nil
}

func (r *TeamRepository) ReplaceByLeague(_ context.Context, leagueID int64, season int, teams []team.Team) error {
	rows := make([]team.Team, 0, len(teams))
	for _, item := range teams {
		if item.Validate() != nil {
			continue
		}
		rows = append(rows, item)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seasons[teamSeasonKey{leagueID: leagueID, season: season}] = teamSeason{teams: rows, storedAt: r.now()}
	return nil
}
