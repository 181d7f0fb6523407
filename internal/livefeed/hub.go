package livefeed

import (
	"context"
	"slices"
	"sync"
)

// Hub fans source snapshots out to subscription channels. Each channel holds
// at most one pending snapshot; a newer snapshot replaces an unread one, so a
// slow consumer always sees the latest document.
type Hub struct {
	onIdle func(matchID int64)

	mu     sync.Mutex
	boxes  map[int64]map[*mailbox]struct{}
	closed bool
}

type mailbox struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

// NewHub calls onIdle (when set) after the last subscriber of a match leaves.
func NewHub(onIdle func(matchID int64)) *Hub {
	return &Hub{onIdle: onIdle, boxes: make(map[int64]map[*mailbox]struct{})}
}

// Add registers a subscriber that lives until ctx is done or release is
// called. first reports whether it is the only subscriber of matchID.
func (h *Hub) Add(ctx context.Context, matchID int64) (snapshots <-chan Snapshot, first bool, release func()) {
	box := &mailbox{ch: make(chan Snapshot, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		box.close()
		return box.ch, false, func() {}
	}
	set, ok := h.boxes[matchID]
	if !ok {
		set = make(map[*mailbox]struct{})
		h.boxes[matchID] = set
	}
	set[box] = struct{}{}
	first = len(set) == 1
	h.mu.Unlock()

	release = func() { h.remove(matchID, box) }
	stop := context.AfterFunc(ctx, release)
	return box.ch, first, func() {
		stop()
		release()
	}
}

func (h *Hub) remove(matchID int64, box *mailbox) {
	h.mu.Lock()
	set := h.boxes[matchID]
	_, known := set[box]
	delete(set, box)
	idle := known && len(set) == 0
	if idle {
		delete(h.boxes, matchID)
	}
	h.mu.Unlock()

	box.close()
	if idle && h.onIdle != nil {
		h.onIdle(matchID)
	}
}

// Offer delivers snapshot to every subscriber of matchID and returns how many
// subscribers there were.
func (h *Hub) Offer(matchID int64, snapshot Snapshot) int {
	h.mu.Lock()
	boxes := make([]*mailbox, 0, len(h.boxes[matchID]))
	for box := range h.boxes[matchID] {
		boxes = append(boxes, box)
	}
	h.mu.Unlock()

	for _, box := range boxes {
		box.offer(snapshot)
	}
	return len(boxes)
}

// Matches lists match ids with at least one subscriber, ascending.
func (h *Hub) Matches() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]int64, 0, len(h.boxes))
	for id := range h.boxes {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (h *Hub) Subscribed(matchID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.boxes[matchID]) > 0
}

// Close closes every subscription channel. Later Adds get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	all := h.boxes
	h.boxes = make(map[int64]map[*mailbox]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for box := range set {
			box.close()
		}
	}
}

func (b *mailbox) offer(snapshot Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- snapshot:
		return
	default:
	}
	select {
	case <-b.ch:
	default:
	}
	select {
	case b.ch <- snapshot:
	default:
	}
}

func (b *mailbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
