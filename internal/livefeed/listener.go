package livefeed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
	"github.com/riskibarqy/rugby-live/internal/fanout"
	"github.com/riskibarqy/rugby-live/internal/normalize"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

var ErrListenerClosed = errors.New("live listener is closed")

const defaultEventLimit = 50

// Sink receives accepted updates. fanout.Dispatcher implements it.
type Sink interface {
	Dispatch(ctx context.Context, update fanout.Update)
	Forget(matchID int64)
}

type Config struct {
	// EventLimit keeps only the most recent N events per match.
	EventLimit int
	Logger     *logging.Logger
}

// Listener keeps one subscription per followed match, normalizes each
// snapshot and forwards it to the sink unless it equals the cached state.
type Listener struct {
	source     Source
	sink       Sink
	eventLimit int
	logger     *logging.Logger

	mu     sync.Mutex
	subs   map[int64]*subscription
	cache  map[int64]match.Match
	closed bool
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

var matchComparer = cmp.Options{
	cmpopts.IgnoreFields(match.Match{}, "UpdatedAt"),
	cmpopts.EquateEmpty(),
}

func NewListener(source Source, sink Sink, cfg Config) *Listener {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	limit := cfg.EventLimit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	return &Listener{
		source:     source,
		sink:       sink,
		eventLimit: limit,
		logger:     logger.Named("livefeed"),
		subs:       make(map[int64]*subscription),
		cache:      make(map[int64]match.Match),
	}
}

// Start subscribes to matchID. A second Start for the same id is a no-op and
// returns false. The subscription outlives ctx's cancellation; use Stop.
func (l *Listener) Start(ctx context.Context, matchID int64) (bool, error) {
	if matchID <= 0 {
		return false, fmt.Errorf("match id must be greater than zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, ErrListenerClosed
	}
	if _, exists := l.subs[matchID]; exists {
		l.logger.InfoContext(ctx, "already listening to match", "match_id", matchID)
		return false, nil
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	snapshots, err := l.source.Subscribe(subCtx, matchID)
	if err != nil {
		cancel()
		return false, fmt.Errorf("subscribe match_id=%d: %w", matchID, err)
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	l.subs[matchID] = sub
	go l.run(subCtx, matchID, snapshots, sub.done)

	l.logger.InfoContext(ctx, "listening to match", "match_id", matchID)
	return true, nil
}

// Stop cancels the subscription, waits for in-flight delivery to finish and
// evicts the cached state. It reports whether a subscription existed.
func (l *Listener) Stop(matchID int64) bool {
	l.mu.Lock()
	sub, ok := l.subs[matchID]
	delete(l.subs, matchID)
	l.mu.Unlock()
	if !ok {
		return false
	}

	sub.cancel()
	<-sub.done

	l.mu.Lock()
	// A Start that ran while we waited owns the cached and published state now.
	if _, restarted := l.subs[matchID]; !restarted {
		delete(l.cache, matchID)
		l.sink.Forget(matchID)
	}
	l.mu.Unlock()

	l.logger.Info("stopped listening to match", "match_id", matchID)
	return true
}

// Close stops every subscription and clears all cached state. Start fails afterwards.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	subs := l.subs
	l.subs = make(map[int64]*subscription)
	l.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	for matchID, sub := range subs {
		<-sub.done
		l.sink.Forget(matchID)
	}

	l.mu.Lock()
	clear(l.cache)
	l.mu.Unlock()

	l.logger.Info("live listener closed", "subscriptions", len(subs))
}

// Latest returns the last accepted state for matchID.
func (l *Listener) Latest(matchID int64) (match.Match, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.cache[matchID]
	if !ok {
		return match.Match{}, false
	}
	m.Events = slices.Clone(m.Events)
	return m, true
}

// Active lists followed match ids in ascending order.
func (l *Listener) Active() []int64 {
	l.mu.Lock()
	out := make([]int64, 0, len(l.subs))
	for id := range l.subs {
		out = append(out, id)
	}
	l.mu.Unlock()

	slices.Sort(out)
	return out
}

func (l *Listener) run(ctx context.Context, matchID int64, snapshots <-chan Snapshot, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				if ctx.Err() == nil {
					l.logger.WarnContext(ctx, "live source closed the subscription", "match_id", matchID)
				}
				return
			}
			l.handle(ctx, matchID, snapshot)
		}
	}
}

func (l *Listener) handle(ctx context.Context, matchID int64, snapshot Snapshot) {
	if snapshot.Err != nil {
		l.logger.WarnContext(ctx, "live snapshot delivery failed", "match_id", matchID, "error", snapshot.Err)
		return
	}
	if snapshot.Doc == nil {
		l.logger.DebugContext(ctx, "live snapshot without document", "match_id", matchID)
		return
	}

	current := normalize.Match(snapshot.Doc)
	if current.ID == 0 {
		current.ID = matchID
	}
	if current.UpdatedAt.IsZero() && !snapshot.ReceivedAt.IsZero() {
		current.UpdatedAt = snapshot.ReceivedAt.UTC()
	}
	current.Events = trimEvents(current.Events, l.eventLimit)

	l.mu.Lock()
	previous, seen := l.cache[matchID]
	if seen && cmp.Equal(previous, current, matchComparer) {
		l.mu.Unlock()
		return
	}
	l.cache[matchID] = current
	l.mu.Unlock()

	update := fanout.Update{Match: current}
	if seen {
		update.Previous = &previous
		update.NewEvents = matchevent.Diff(previous.Events, current.Events)
		update.EventsChanged = !cmp.Equal(previous.Events, current.Events, cmpopts.EquateEmpty())
	} else {
		// History already present on the first snapshot is not announced as new.
		update.EventsChanged = len(current.Events) > 0
	}

	l.sink.Dispatch(ctx, update)
}

// trimEvents keeps the most recent limit events; events are in chronological order.
func trimEvents(events []matchevent.Event, limit int) []matchevent.Event {
	if limit <= 0 || len(events) <= limit {
		return events
	}
	return slices.Clone(events[len(events)-limit:])
}
