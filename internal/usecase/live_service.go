package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/fanout"
)

// LiveService exposes live subscriptions and their published state to the API.
type LiveService struct {
	watcher   LiveWatcher
	published *fanout.Published
}

func NewLiveService(watcher LiveWatcher, published *fanout.Published) *LiveService {
	return &LiveService{watcher: watcher, published: published}
}

func (s *LiveService) Watch(ctx context.Context, matchID int64) (bool, error) {
	if matchID <= 0 {
		return false, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	started, err := s.watcher.Start(ctx, matchID)
	if err != nil {
		return false, fmt.Errorf("%w: watch match: %v", ErrDependencyUnavailable, err)
	}
	return started, nil
}

func (s *LiveService) Unwatch(matchID int64) (bool, error) {
	if matchID <= 0 {
		return false, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	return s.watcher.Stop(matchID), nil
}

func (s *LiveService) Active() []int64 {
	return s.watcher.Active()
}

func (s *LiveService) Matches() []match.Match {
	return s.published.Snapshot()
}

func (s *LiveService) Match(matchID int64) (match.Match, bool) {
	return s.published.Get(matchID)
}
