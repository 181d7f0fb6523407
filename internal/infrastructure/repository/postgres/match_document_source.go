package postgres

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/rugby-live/internal/livefeed"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	qb "github.com/riskibarqy/rugby-live/internal/platform/querybuilder"
)

const (
	// MatchDocumentsChannel is the NOTIFY channel fired by the match_documents
	// and match_events triggers; the payload is the match id.
	MatchDocumentsChannel = "match_documents"

	matchDocumentsTable  = "match_documents"
	matchEventsTable     = "match_events"
	defaultEventLimit    = 50
	defaultPingInterval  = 90 * time.Second
	matchEventColumns    = "id, match_id, event_type, event_time, team, player_id, player_name, detail, created_at"
	matchDocumentColumns = "match_id, document, updated_at"
)

// NotificationListener is the subset of *pq.Listener the source needs.
type NotificationListener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type MatchDocumentSourceConfig struct {
	EventLimit   int
	PingInterval time.Duration
	Logger       *logging.Logger
}

// MatchDocumentSource serves live match documents stored in Postgres. Each
// NOTIFY on MatchDocumentsChannel reloads the document and its latest events
// and offers the result to that match's subscribers.
type MatchDocumentSource struct {
	db           *sqlx.DB
	listener     NotificationListener
	hub          *livefeed.Hub
	eventLimit   int
	pingInterval time.Duration
	logger       *logging.Logger
	now          func() time.Time

	// Loads are numbered when they start. A load that finishes after a later
	// one was already offered is dropped, so subscribers see commit order.
	loadSeq   atomic.Uint64
	offerMu   sync.Mutex
	delivered map[int64]uint64
}

func NewMatchDocumentSource(db *sqlx.DB, listener NotificationListener, cfg MatchDocumentSourceConfig) *MatchDocumentSource {
	if cfg.EventLimit <= 0 {
		cfg.EventLimit = defaultEventLimit
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	s := &MatchDocumentSource{
		db:           db,
		listener:     listener,
		eventLimit:   cfg.EventLimit,
		pingInterval: cfg.PingInterval,
		logger:       cfg.Logger.Named("match_documents"),
		now:          time.Now,
		delivered:    make(map[int64]uint64),
	}
	s.hub = livefeed.NewHub(s.forget)
	return s
}

// Subscribe registers a subscriber and loads the current document in the
// background so the caller is not blocked on the database.
func (s *MatchDocumentSource) Subscribe(ctx context.Context, matchID int64) (<-chan livefeed.Snapshot, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id %d", matchID)
	}

	snapshots, _, _ := s.hub.Add(ctx, matchID)
	seq := s.loadSeq.Add(1)
	go s.load(ctx, matchID, seq)
	return snapshots, nil
}

// Run listens for notifications until ctx is done or the listener closes.
func (s *MatchDocumentSource) Run(ctx context.Context) error {
	if err := s.listener.Listen(MatchDocumentsChannel); err != nil {
		return fmt.Errorf("listen %s: %w", MatchDocumentsChannel, err)
	}
	defer s.hub.Close()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	notifications := s.listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.listener.Ping(); err != nil {
				s.logger.WarnContext(ctx, "postgres listener ping failed", "error", err)
			}
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			s.handleNotification(ctx, n)
		}
	}
}

// handleNotification reloads one match, or every subscribed match when n is
// nil, which pq sends after re-establishing a dropped connection.
func (s *MatchDocumentSource) handleNotification(ctx context.Context, n *pq.Notification) {
	if n == nil {
		for _, matchID := range s.hub.Matches() {
			s.refresh(ctx, matchID)
		}
		return
	}

	matchID, err := strconv.ParseInt(strings.TrimSpace(n.Extra), 10, 64)
	if err != nil || matchID <= 0 {
		s.logger.WarnContext(ctx, "ignore match document notification", "payload", n.Extra)
		return
	}
	if !s.hub.Subscribed(matchID) {
		return
	}
	s.refresh(ctx, matchID)
}

func (s *MatchDocumentSource) refresh(ctx context.Context, matchID int64) {
	s.load(ctx, matchID, s.loadSeq.Add(1))
}

func (s *MatchDocumentSource) load(ctx context.Context, matchID int64, seq uint64) {
	doc, found, err := s.Load(ctx, matchID)
	snapshot := livefeed.Snapshot{ReceivedAt: s.now().UTC()}
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		snapshot.Err = err
	case !found:
		return
	default:
		snapshot.Doc = doc
	}
	s.offer(matchID, seq, snapshot)
}

func (s *MatchDocumentSource) offer(matchID int64, seq uint64, snapshot livefeed.Snapshot) {
	s.offerMu.Lock()
	defer s.offerMu.Unlock()

	if seq < s.delivered[matchID] {
		s.logger.Debug("drop superseded match document load", "match_id", matchID, "seq", seq)
		return
	}
	s.delivered[matchID] = seq
	s.hub.Offer(matchID, snapshot)
}

func (s *MatchDocumentSource) forget(matchID int64) {
	s.offerMu.Lock()
	delete(s.delivered, matchID)
	s.offerMu.Unlock()
}

// Load reads the stored document for matchID and replaces its events with the
// latest rows of match_events in chronological order, when any exist.
func (s *MatchDocumentSource) Load(ctx context.Context, matchID int64) (map[string]any, bool, error) {
	query, args, err := qb.Select(matchDocumentColumns).From(matchDocumentsTable).
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build get match document query: %w", err)
	}

	var row matchDocumentTableModel
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get match document: %w", err)
	}

	doc := make(map[string]any)
	if len(row.Document) > 0 {
		if err := sonic.Unmarshal(row.Document, &doc); err != nil {
			return nil, false, fmt.Errorf("decode match document %d: %w", matchID, err)
		}
	}
	if _, ok := doc["id"]; !ok {
		doc["id"] = matchID
	}
	if _, ok := doc["updatedAt"]; !ok && !row.UpdatedAt.IsZero() {
		doc["updatedAt"] = row.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	events, err := s.latestEvents(ctx, matchID)
	if err != nil {
		return nil, false, err
	}
	if len(events) > 0 {
		doc["events"] = events
	}
	return doc, true, nil
}

func (s *MatchDocumentSource) latestEvents(ctx context.Context, matchID int64) ([]any, error) {
	query, args, err := qb.Select(matchEventColumns).From(matchEventsTable).
		Where(qb.Eq("match_id", matchID)).
		OrderBy("created_at DESC", "id DESC").
		Limit(s.eventLimit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match events query: %w", err)
	}

	var rows []matchEventTableModel
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select match events: %w", err)
	}

	slices.Reverse(rows)
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDocument())
	}
	return out, nil
}

// Close stops delivering to subscribers and closes the pq listener.
func (s *MatchDocumentSource) Close() error {
	s.hub.Close()
	if err := s.listener.Close(); err != nil {
		return fmt.Errorf("close postgres listener: %w", err)
	}
	return nil
}
