package fanout

import (
	"slices"
	"sync"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
)

// Published holds the latest accepted state per match for readers outside the
// listener. Readers always receive copies.
type Published struct {
	mu      sync.RWMutex
	matches map[int64]match.Match
}

func NewPublished() *Published {
	return &Published{matches: make(map[int64]match.Match)}
}

func (p *Published) Set(m match.Match) {
	m.Events = slices.Clone(m.Events)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.matches[m.ID] = m
}

func (p *Published) Get(id int64) (match.Match, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.matches[id]
	if !ok {
		return match.Match{}, false
	}
	m.Events = slices.Clone(m.Events)
	return m, true
}

func (p *Published) Delete(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.matches, id)
}

// Snapshot lists every published match ordered by id.
func (p *Published) Snapshot() []match.Match {
	p.mu.RLock()
	out := make([]match.Match, 0, len(p.matches))
	for _, m := range p.matches {
		m.Events = slices.Clone(m.Events)
		out = append(out, m)
	}
	p.mu.RUnlock()

	slices.SortFunc(out, func(a, b match.Match) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}
