package livefeed

import (
	"context"
	"time"
)

// Snapshot is one delivery from a live source: the full current document, or
// an error the source could not recover from on its own.
type Snapshot struct {
	Doc        map[string]any
	Err        error
	ReceivedAt time.Time
}

// Source opens a subscription to one match document. The returned channel
// delivers snapshots in commit order and is closed once ctx is done.
// Subscribe must return promptly; the listener holds its registry lock while calling it.
type Source interface {
	Subscribe(ctx context.Context, matchID int64) (<-chan Snapshot, error)
}
