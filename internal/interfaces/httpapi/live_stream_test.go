package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
	"github.com/riskibarqy/rugby-live/internal/fanout"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

// newStreamServer serves stream through the full middleware chain so
// upgrades are exercised behind tracing, logging and CORS.
func newStreamServer(t *testing.T, stream *LiveStream) *httptest.Server {
	t.Helper()

	handler := NewHandler(HandlerConfig{Live: stream.live, Logger: logging.NewNop()})
	server := httptest.NewServer(NewRouter(RouterConfig{
		Handler:            handler,
		Stream:             stream,
		Logger:             logging.NewNop(),
		CORSAllowedOrigins: []string{"*"},
	}))
	t.Cleanup(server.Close)
	return server
}

func dialStream(t *testing.T, stream *LiveStream, query string) *websocket.Conn {
	t.Helper()

	server := newStreamServer(t, stream)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/live/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) liveFrame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame liveFrame
	require.NoError(t, sonic.Unmarshal(payload, &frame))
	return frame
}

func TestLiveStream_InitialStateThenFilteredUpdates(t *testing.T) {
	buses := fanout.NewBuses(8, logging.NewNop())
	defer buses.Close()
	live := &fakeLive{published: map[int64]match.Match{49925: {ID: 49925, Status: "1H"}}}
	stream := NewLiveStream(LiveStreamConfig{Buses: buses, Live: live, Logger: logging.NewNop()})

	conn := dialStream(t, stream, "?match=49925")

	first := readFrame(t, conn)
	require.Equal(t, frameMatchUpdated, first.Type)
	require.Equal(t, int64(49925), first.MatchID)

	buses.Matches.Publish(fanout.MatchUpdated{Match: match.Match{ID: 1, Status: "1H"}})
	buses.Arrived.Publish(fanout.EventArrived{MatchID: 49925, Event: matchevent.Event{Type: "try", Detail: "Essai"}})

	next := readFrame(t, conn)
	require.Equal(t, frameEventArrived, next.Type)
	require.Equal(t, int64(49925), next.MatchID)
	require.NotNil(t, next.Event)
	require.Equal(t, "try", next.Event.Type)

	buses.Events.Publish(fanout.EventsRefreshed{MatchID: 49925, Count: 3})
	refreshed := readFrame(t, conn)
	require.Equal(t, frameEventsRefreshed, refreshed.Type)
	require.NotNil(t, refreshed.Count)
	require.Equal(t, 3, *refreshed.Count)
}

func TestLiveStream_ClosesWhenBusesClose(t *testing.T) {
	buses := fanout.NewBuses(8, logging.NewNop())
	live := &fakeLive{published: map[int64]match.Match{}}
	stream := NewLiveStream(LiveStreamConfig{Buses: buses, Live: live, Logger: logging.NewNop()})

	conn := dialStream(t, stream, "")
	require.Eventually(t, func() bool { return buses.Matches.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	buses.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}

func TestLiveStream_RejectsBadMatchFilter(t *testing.T) {
	buses := fanout.NewBuses(8, logging.NewNop())
	defer buses.Close()
	stream := NewLiveStream(LiveStreamConfig{Buses: buses, Live: &fakeLive{}, Logger: logging.NewNop()})

	server := newStreamServer(t, stream)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/live/ws?match=abc"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 400, resp.StatusCode)
}
