package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
	"github.com/riskibarqy/rugby-live/internal/fanout"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/usecase"
)

const (
	frameMatchUpdated    = "match.updated"
	frameEventsRefreshed = "events.refreshed"
	frameEventArrived    = "event.arrived"
)

type liveFrame struct {
	Type    string              `json:"type"`
	MatchID int64               `json:"matchId"`
	Match   *match.Match        `json:"match,omitempty"`
	Event   *matchevent.Event   `json:"event,omitempty"`
	Summary *matchevent.Summary `json:"eventsSummary,omitempty"`
	Count   *int                `json:"count,omitempty"`
}

type LiveStreamConfig struct {
	Buses          fanout.Buses
	Live           LiveControl
	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	Logger         *logging.Logger
}

// LiveStream serves GET /v1/live/ws. Each connection gets the current
// published state of its match (or all matches), then every MatchUpdated,
// EventsRefreshed and EventArrived message that concerns it.
type LiveStream struct {
	buses        fanout.Buses
	live         LiveControl
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	logger       *logging.Logger
}

func NewLiveStream(cfg LiveStreamConfig) *LiveStream {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	pingInterval := cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &LiveStream{
		buses: cfg.Buses,
		live:  cfg.Live,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originAllowed(cfg.AllowedOrigins),
		},
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		logger:       logger.Named("livestream"),
	}
}

func (s *LiveStream) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.LiveStream.Serve")
	defer span.End()

	matchID, err := parseMatchFilter(r.URL.Query().Get("match"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// Subscribe before the upgrade so nothing published in between is lost.
	matches, unsubMatches := s.buses.Matches.Subscribe()
	defer unsubMatches()
	refreshed, unsubRefreshed := s.buses.Events.Subscribe()
	defer unsubRefreshed()
	arrived, unsubArrived := s.buses.Arrived.Subscribe()
	defer unsubArrived()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.readLoop(conn, cancel)

	for _, frame := range s.initialFrames(matchID) {
		if err := s.write(conn, frame); err != nil {
			return
		}
	}

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		var frame liveFrame
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case msg, ok := <-matches:
			if !ok {
				s.closeNormal(conn)
				return
			}
			if matchID != 0 && msg.Match.ID != matchID {
				continue
			}
			current := msg.Match
			frame = liveFrame{Type: frameMatchUpdated, MatchID: current.ID, Match: &current}
		case msg, ok := <-refreshed:
			if !ok {
				s.closeNormal(conn)
				return
			}
			if matchID != 0 && msg.MatchID != matchID {
				continue
			}
			summary, count := msg.Summary, msg.Count
			frame = liveFrame{Type: frameEventsRefreshed, MatchID: msg.MatchID, Summary: &summary, Count: &count}
		case msg, ok := <-arrived:
			if !ok {
				s.closeNormal(conn)
				return
			}
			if matchID != 0 && msg.MatchID != matchID {
				continue
			}
			event := msg.Event
			frame = liveFrame{Type: frameEventArrived, MatchID: msg.MatchID, Event: &event}
		}

		if err := s.write(conn, frame); err != nil {
			s.logger.DebugContext(ctx, "websocket write failed", "error", err)
			return
		}
	}
}

func (s *LiveStream) initialFrames(matchID int64) []liveFrame {
	if matchID != 0 {
		current, ok := s.live.Match(matchID)
		if !ok {
			return nil
		}
		return []liveFrame{{Type: frameMatchUpdated, MatchID: current.ID, Match: &current}}
	}

	published := s.live.Matches()
	frames := make([]liveFrame, 0, len(published))
	for i := range published {
		frames = append(frames, liveFrame{Type: frameMatchUpdated, MatchID: published[i].ID, Match: &published[i]})
	}
	return frames
}

// readLoop drains client frames so pongs and close frames are processed.
func (s *LiveStream) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.pingInterval))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *LiveStream) write(conn *websocket.Conn, frame liveFrame) error {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *LiveStream) closeNormal(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(s.writeTimeout))
}

func parseMatchFilter(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: match must be a positive integer", usecase.ErrInvalidInput)
	}
	return id, nil
}
