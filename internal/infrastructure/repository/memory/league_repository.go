package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/rugby-live/internal/domain/league"
)

// LeagueRepository serves the configured league catalog in file order.
type LeagueRepository struct {
	mu     sync.RWMutex
	items  map[int64]league.League
	orders []int64
}

func NewLeagueRepository(leagues []league.League) *LeagueRepository {
	items := make(map[int64]league.League, len(leagues))
	orders := make([]int64, 0, len(leagues))

	for _, l := range leagues {
		if _, dup := items[l.ID]; !dup {
			orders = append(orders, l.ID)
		}
		items[l.ID] = l
	}

	return &LeagueRepository{
		items:  items,
		orders: orders,
	}
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID int64) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.items[leagueID]
	if !ok {
		return league.League{}, false, nil
	}

	return l, true, nil
}
