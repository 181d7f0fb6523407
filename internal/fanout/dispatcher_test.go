package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

type activityStub struct {
	mu     sync.Mutex
	states []ActivityState
	err    error
	panics bool
}

func (s *activityStub) UpdateLiveActivity(_ context.Context, state ActivityState) error {
	if s.panics {
		panic("activity surface exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
	return s.err
}

func (s *activityStub) calls() []ActivityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ActivityState(nil), s.states...)
}

func intPtr(v int) *int { return &v }

func TestDispatcher_EventChangeReachesEverySink(t *testing.T) {
	t.Parallel()

	activity := &activityStub{err: errors.New("webhook down")}
	buses := NewBuses(8, logging.NewNop())
	dispatcher := NewDispatcher(DispatcherConfig{Buses: buses, Activity: activity, Logger: logging.NewNop()})

	matches, stopMatches := buses.Matches.Subscribe()
	defer stopMatches()
	refreshed, stopRefreshed := buses.Events.Subscribe()
	defer stopRefreshed()
	arrived, stopArrived := buses.Arrived.Subscribe()
	defer stopArrived()

	prev := match.Match{ID: 49925, Status: match.StatusFirstHalf, HomeScore: intPtr(0), AwayScore: intPtr(0)}
	try := matchevent.Event{Type: "try", Time: "23'", Team: "home", Player: &matchevent.Player{Name: "A. Dupont"}}
	current := prev
	current.HomeScore = intPtr(5)
	current.Events = []matchevent.Event{try}
	current.Summary = matchevent.Summarize(current.Events)

	dispatcher.Dispatch(context.Background(), Update{
		Match:         current,
		Previous:      &prev,
		NewEvents:     []matchevent.Event{try},
		EventsChanged: true,
	})

	if got := <-matches; got.Match.ID != 49925 || got.Previous == nil {
		t.Fatalf("unexpected match update: %+v", got)
	}
	if got := <-refreshed; got.Summary.Tries != 1 || got.Count != 1 {
		t.Fatalf("unexpected refresh: %+v", got)
	}
	if got := <-arrived; got.Event.Key() != try.Key() {
		t.Fatalf("unexpected event: %+v", got)
	}

	calls := activity.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one live activity update despite its error, got=%d", len(calls))
	}
	if calls[0].HomeScore != 5 || calls[0].EventDescription == nil || *calls[0].EventDescription != "Try 23' (home) - A. Dupont" {
		t.Fatalf("unexpected activity state: %+v", calls[0])
	}

	published, ok := dispatcher.Published().Get(49925)
	if !ok || *published.HomeScore != 5 {
		t.Fatalf("expected published state, got=%+v ok=%v", published, ok)
	}
}

func TestDispatcher_SinkPanicDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	buses := NewBuses(8, logging.NewNop())
	dispatcher := NewDispatcher(DispatcherConfig{Buses: buses, Activity: &activityStub{panics: true}, Logger: logging.NewNop()})
	refreshed, stop := buses.Events.Subscribe()
	defer stop()

	dispatcher.Dispatch(context.Background(), Update{
		Match:         match.Match{ID: 1, Events: []matchevent.Event{{Type: "try", Time: "1'", Team: "home"}}},
		EventsChanged: true,
	})

	select {
	case got := <-refreshed:
		if got.MatchID != 1 {
			t.Fatalf("unexpected refresh: %+v", got)
		}
	default:
		t.Fatalf("expected refresh to be published despite panicking sink")
	}
}

func TestDispatcher_NoEventChangeSkipsEventSinks(t *testing.T) {
	t.Parallel()

	activity := &activityStub{}
	buses := NewBuses(8, logging.NewNop())
	dispatcher := NewDispatcher(DispatcherConfig{Buses: buses, Activity: activity, Logger: logging.NewNop()})
	refreshed, stop := buses.Events.Subscribe()
	defer stop()

	prev := match.Match{ID: 2, Status: match.StatusFirstHalf, Timer: "10"}
	current := prev
	current.Timer = "11"
	dispatcher.Dispatch(context.Background(), Update{Match: current, Previous: &prev})

	select {
	case got := <-refreshed:
		t.Fatalf("unexpected refresh: %+v", got)
	default:
	}
	if len(activity.calls()) != 0 {
		t.Fatalf("clock-only change must not touch the live activity")
	}

	status := current
	status.Status = match.StatusHalfTime
	dispatcher.Dispatch(context.Background(), Update{Match: status, Previous: &current})
	if calls := activity.calls(); len(calls) != 1 || calls[0].Status != match.StatusHalfTime {
		t.Fatalf("status change must refresh the live activity, got=%+v", calls)
	}

	dispatcher.Forget(2)
	if _, ok := dispatcher.Published().Get(2); ok {
		t.Fatalf("expected forgotten match to be unpublished")
	}
}
