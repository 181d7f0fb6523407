package livefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/rugby-live/internal/fanout"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

type fakeSource struct {
	mu         sync.Mutex
	subscribed map[int64]int
	feeds      map[int64]*fakeFeed
	err        error
}

type fakeFeed struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{subscribed: make(map[int64]int), feeds: make(map[int64]*fakeFeed)}
}

func (s *fakeSource) Subscribe(ctx context.Context, matchID int64) (<-chan Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	feed := &fakeFeed{ch: make(chan Snapshot, 16)}
	s.subscribed[matchID]++
	s.feeds[matchID] = feed
	go func() {
		<-ctx.Done()
		feed.mu.Lock()
		defer feed.mu.Unlock()
		feed.closed = true
		close(feed.ch)
	}()
	return feed.ch, nil
}

func (s *fakeSource) push(matchID int64, snapshot Snapshot) {
	s.mu.Lock()
	feed := s.feeds[matchID]
	s.mu.Unlock()
	if feed == nil {
		return
	}
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if !feed.closed {
		feed.ch <- snapshot
	}
}

func (s *fakeSource) subscriptions(matchID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed[matchID]
}

type recordingSink struct {
	updates chan fanout.Update
	mu      sync.Mutex
	forgot  []int64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{updates: make(chan fanout.Update, 16)}
}

func (s *recordingSink) Dispatch(_ context.Context, update fanout.Update) {
	s.updates <- update
}

func (s *recordingSink) Forget(matchID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgot = append(s.forgot, matchID)
}

func (s *recordingSink) forgotten() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.forgot...)
}

func (s *recordingSink) next(t *testing.T) fanout.Update {
	t.Helper()
	select {
	case update := <-s.updates:
		return update
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for dispatch")
		return fanout.Update{}
	}
}

func (s *recordingSink) expectNone(t *testing.T) {
	t.Helper()
	select {
	case update := <-s.updates:
		t.Fatalf("unexpected dispatch: %+v", update)
	case <-time.After(50 * time.Millisecond):
	}
}

func liveDoc(home, away int, events ...map[string]any) map[string]any {
	raw := make([]any, 0, len(events))
	for _, item := range events {
		raw = append(raw, item)
	}
	return map[string]any{
		"homeTeam":  map[string]any{"id": 107, "name": "Toulouse"},
		"awayTeam":  map[string]any{"id": 108, "name": "Toulon"},
		"homeScore": home,
		"awayScore": away,
		"status":    "1H",
		"events":    raw,
	}
}

func TestListener_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	source := newFakeSource()
	sink := newRecordingSink()
	listener := NewListener(source, sink, Config{Logger: logging.NewNop()})
	defer listener.Close()

	ctx := context.Background()
	started, err := listener.Start(ctx, 49925)
	if err != nil || !started {
		t.Fatalf("first start: started=%v err=%v", started, err)
	}
	started, err = listener.Start(ctx, 49925)
	if err != nil || started {
		t.Fatalf("second start must be a no-op: started=%v err=%v", started, err)
	}
	if got := source.subscriptions(49925); got != 1 {
		t.Fatalf("expected exactly one underlying subscription, got=%d", got)
	}

	source.push(49925, Snapshot{Doc: liveDoc(0, 0)})
	sink.next(t)
	if _, ok := listener.Latest(49925); !ok {
		t.Fatalf("expected cached state after first snapshot")
	}

	if !listener.Stop(49925) {
		t.Fatalf("expected stop to release the subscription")
	}
	if _, ok := listener.Latest(49925); ok {
		t.Fatalf("expected cache to be evicted on stop")
	}
	if listener.Stop(49925) {
		t.Fatalf("second stop must report nothing to release")
	}
	if got := sink.forgotten(); len(got) != 1 || got[0] != 49925 {
		t.Fatalf("expected exactly one eviction, got=%v", got)
	}
}

func TestListener_SkipsIdenticalSnapshots(t *testing.T) {
	t.Parallel()

	source := newFakeSource()
	sink := newRecordingSink()
	listener := NewListener(source, sink, Config{Logger: logging.NewNop()})
	defer listener.Close()

	if _, err := listener.Start(context.Background(), 7); err != nil {
		t.Fatalf("start: %v", err)
	}

	first := liveDoc(0, 0)
	source.push(7, Snapshot{Doc: first, ReceivedAt: time.Unix(100, 0)})
	initial := sink.next(t)
	if initial.Previous != nil || initial.Match.ID != 7 {
		t.Fatalf("unexpected first update: %+v", initial)
	}

	// Same content, different receive time.
	source.push(7, Snapshot{Doc: liveDoc(0, 0), ReceivedAt: time.Unix(200, 0)})
	sink.expectNone(t)

	try := map[string]any{"type": "try", "time": "23'", "team": "home"}
	source.push(7, Snapshot{Doc: liveDoc(5, 0, try)})
	update := sink.next(t)
	if update.Previous == nil || !update.ScoreChanged() {
		t.Fatalf("expected score change against previous: %+v", update)
	}
	if !update.EventsChanged || len(update.NewEvents) != 1 || update.NewEvents[0].Time != "23'" {
		t.Fatalf("expected one new event: %+v", update)
	}
}

func TestListener_DeliveryErrorKeepsSubscription(t *testing.T) {
	t.Parallel()

	source := newFakeSource()
	sink := newRecordingSink()
	listener := NewListener(source, sink, Config{Logger: logging.NewNop()})
	defer listener.Close()

	if _, err := listener.Start(context.Background(), 3); err != nil {
		t.Fatalf("start: %v", err)
	}

	source.push(3, Snapshot{Err: errors.New("permission denied")})
	source.push(3, Snapshot{Doc: liveDoc(3, 0)})

	update := sink.next(t)
	if update.Match.HomeScore == nil || *update.Match.HomeScore != 3 {
		t.Fatalf("expected recovery on next snapshot: %+v", update)
	}
	if active := listener.Active(); len(active) != 1 || active[0] != 3 {
		t.Fatalf("subscription must stay registered, active=%v", active)
	}
}

func TestListener_TrimsToMostRecentEvents(t *testing.T) {
	t.Parallel()

	source := newFakeSource()
	sink := newRecordingSink()
	listener := NewListener(source, sink, Config{EventLimit: 2, Logger: logging.NewNop()})
	defer listener.Close()

	if _, err := listener.Start(context.Background(), 9); err != nil {
		t.Fatalf("start: %v", err)
	}
	source.push(9, Snapshot{Doc: liveDoc(10, 0,
		map[string]any{"type": "try", "time": "5'", "team": "home"},
		map[string]any{"type": "conversion", "time": "6'", "team": "home"},
		map[string]any{"type": "penalty", "time": "30'", "team": "home"},
	)})

	update := sink.next(t)
	if len(update.Match.Events) != 2 || update.Match.Events[0].Time != "6'" {
		t.Fatalf("expected the two most recent events, got=%+v", update.Match.Events)
	}
	if len(update.NewEvents) != 0 || !update.EventsChanged {
		t.Fatalf("first snapshot must refresh without announcing history: %+v", update)
	}
}

func TestListener_CloseReleasesEverything(t *testing.T) {
	t.Parallel()

	source := newFakeSource()
	sink := newRecordingSink()
	listener := NewListener(source, sink, Config{Logger: logging.NewNop()})

	for _, id := range []int64{1, 2, 3} {
		if _, err := listener.Start(context.Background(), id); err != nil {
			t.Fatalf("start %d: %v", id, err)
		}
	}
	source.push(2, Snapshot{Doc: liveDoc(1, 1)})
	sink.next(t)

	listener.Close()
	listener.Close()

	if active := listener.Active(); len(active) != 0 {
		t.Fatalf("expected no active subscriptions, got=%v", active)
	}
	if _, ok := listener.Latest(2); ok {
		t.Fatalf("expected caches to be cleared")
	}
	if _, err := listener.Start(context.Background(), 4); !errors.Is(err, ErrListenerClosed) {
		t.Fatalf("expected ErrListenerClosed, got=%v", err)
	}
}

func TestListener_SubscribeFailure(t *testing.T) {
	t.Parallel()

	source := newFakeSource()
	source.err = errors.New("connection refused")
	listener := NewListener(source, newRecordingSink(), Config{Logger: logging.NewNop()})
	defer listener.Close()

	started, err := listener.Start(context.Background(), 11)
	if err == nil || started {
		t.Fatalf("expected subscribe failure, started=%v err=%v", started, err)
	}
	if len(listener.Active()) != 0 {
		t.Fatalf("failed start must not register a subscription")
	}
	if _, err := listener.Start(context.Background(), 0); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

type gatedSink struct {
	*recordingSink
	once sync.Once
	gate chan struct{}
	held chan struct{}
}

// Dispatch blocks the first call until gate is closed.
func (s *gatedSink) Dispatch(ctx context.Context, update fanout.Update) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.held)
		<-s.gate
	}
	s.recordingSink.Dispatch(ctx, update)
}

func TestListener_RestartDuringStopKeepsNewState(t *testing.T) {
	source := newFakeSource()
	sink := &gatedSink{recordingSink: newRecordingSink(), gate: make(chan struct{}), held: make(chan struct{})}
	listener := NewListener(source, sink, Config{Logger: logging.NewNop()})
	defer listener.Close()

	ctx := context.Background()
	if _, err := listener.Start(ctx, 49925); err != nil {
		t.Fatalf("start: %v", err)
	}
	source.push(49925, Snapshot{Doc: liveDoc(0, 0)})
	<-sink.held

	stopped := make(chan bool, 1)
	go func() { stopped <- listener.Stop(49925) }()

	deadline := time.Now().Add(time.Second)
	for len(listener.Active()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stop did not release the subscription")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if started, err := listener.Start(ctx, 49925); err != nil || !started {
		t.Fatalf("restart: started=%v err=%v", started, err)
	}
	source.push(49925, Snapshot{Doc: liveDoc(7, 0)})
	if got := sink.next(t); got.Match.HomeScore == nil || *got.Match.HomeScore != 7 {
		t.Fatalf("expected restarted subscription to dispatch 7-0, got %+v", got.Match)
	}

	close(sink.gate)
	if !<-stopped {
		t.Fatalf("expected stop to report the old subscription")
	}

	latest, ok := listener.Latest(49925)
	if !ok || latest.HomeScore == nil || *latest.HomeScore != 7 {
		t.Fatalf("restarted state was evicted: ok=%v match=%+v", ok, latest)
	}
	if got := sink.forgotten(); len(got) != 0 {
		t.Fatalf("published state of the restarted match was forgotten: %v", got)
	}
}
