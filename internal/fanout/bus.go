package fanout

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

const dropWarnInterval = 10 * time.Second

// Bus is a typed in-process publish/subscribe channel. Publish never blocks: a
// subscriber whose buffer is full misses the message.
type Bus[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]chan T
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Uint64

	name     string
	logger   *logging.Logger
	lastWarn atomic.Int64
	now      func() time.Time
}

func NewBus[T any](buffer int) *Bus[T] {
	return newNamedBus[T]("", buffer, nil)
}

// newNamedBus logs dropped messages under name, at most once per dropWarnInterval.
func newNamedBus[T any](name string, buffer int, logger *logging.Logger) *Bus[T] {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Bus[T]{
		subs:   make(map[uint64]chan T),
		buffer: buffer,
		name:   name,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe returns a receive channel and a func that detaches it. The channel
// is closed on unsubscribe or when the bus closes.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if current, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(current)
			}
		})
	}
}

// Publish delivers msg to every subscriber with room and returns how many received it.
func (b *Bus[T]) Publish(msg T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- msg:
			delivered++
		default:
			b.warnDropped(b.dropped.Add(1))
		}
	}
	return delivered
}

func (b *Bus[T]) warnDropped(total uint64) {
	now := b.now().UnixNano()
	last := b.lastWarn.Load()
	if last != 0 && now-last < int64(dropWarnInterval) {
		return
	}
	if !b.lastWarn.CompareAndSwap(last, now) {
		return
	}
	b.logger.Warn("bus subscriber buffer full, message dropped",
		"bus", b.name,
		"dropped_total", total,
		"buffer", b.buffer,
	)
}

func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped counts messages lost to full subscriber buffers.
func (b *Bus[T]) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
