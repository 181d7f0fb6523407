package fanout

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

func TestBus_PublishDropsWhenBufferFull(t *testing.T) {
	t.Parallel()

	bus := NewBus[int](1)
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	if got := bus.Publish(1); got != 1 {
		t.Fatalf("expected delivery to one subscriber, got=%d", got)
	}
	if got := bus.Publish(2); got != 0 {
		t.Fatalf("expected full buffer to drop, got=%d", got)
	}
	if bus.Dropped() != 1 {
		t.Fatalf("expected one dropped message, got=%d", bus.Dropped())
	}
	if got := <-ch; got != 1 {
		t.Fatalf("unexpected message: %d", got)
	}
}

func TestBus_UnsubscribeAndClose(t *testing.T) {
	t.Parallel()

	bus := NewBus[string](4)
	first, unsubscribe := bus.Subscribe()
	second, _ := bus.Subscribe()

	unsubscribe()
	unsubscribe()
	if _, ok := <-first; ok {
		t.Fatalf("expected unsubscribed channel to be closed")
	}
	if bus.Subscribers() != 1 {
		t.Fatalf("expected one subscriber, got=%d", bus.Subscribers())
	}

	bus.Close()
	if _, ok := <-second; ok {
		t.Fatalf("expected channel to close with the bus")
	}
	if got := bus.Publish("late"); got != 0 {
		t.Fatalf("closed bus must not deliver, got=%d", got)
	}

	late, _ := bus.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("subscribe after close must return a closed channel")
	}
}

func TestBus_DropsAreLoggedWithThrottle(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	bus := newNamedBus[int]("matches", 1, logging.FromZap(zap.New(core)))
	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	bus.now = func() time.Time { return now }

	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(1)
	bus.Publish(2)
	bus.Publish(3)
	if got := logs.Len(); got != 1 {
		t.Fatalf("expected one throttled warning, got=%d", got)
	}
	first := logs.All()[0].ContextMap()
	if first["bus"] != "matches" || first["dropped_total"] != uint64(1) {
		t.Fatalf("unexpected warning fields: %v", first)
	}

	now = now.Add(dropWarnInterval)
	bus.Publish(4)
	if got := logs.Len(); got != 2 {
		t.Fatalf("expected a second warning after the interval, got=%d", got)
	}
	if got := logs.All()[1].ContextMap()["dropped_total"]; got != uint64(3) {
		t.Fatalf("expected running drop total, got=%v", got)
	}
}
