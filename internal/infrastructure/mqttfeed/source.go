package mqttfeed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/riskibarqy/rugby-live/internal/livefeed"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

const (
	QoSAtMostOnce  byte = 0
	QoSAtLeastOnce byte = 1

	defaultTopicPrefix = "rugby/matches"
	defaultWaitTimeout = 10 * time.Second
)

// Client is the subset of mqtt.Client the source needs.
type Client interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

type SourceConfig struct {
	TopicPrefix string
	QoS         byte
	WaitTimeout time.Duration
	Logger      *logging.Logger
}

// MatchSource subscribes to <prefix>/<matchID> topics whose retained or
// published payload is the full JSON match document.
type MatchSource struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
	hub     *livefeed.Hub
	logger  *logging.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewMatchSource(client Client, cfg SourceConfig) *MatchSource {
	prefix := strings.TrimRight(strings.TrimSpace(cfg.TopicPrefix), "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultWaitTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	s := &MatchSource{
		client:  client,
		prefix:  prefix,
		qos:     cfg.QoS,
		timeout: cfg.WaitTimeout,
		logger:  cfg.Logger.Named("mqtt_source"),
		now:     time.Now,
	}
	s.hub = livefeed.NewHub(s.unsubscribe)
	return s
}

func (s *MatchSource) Topic(matchID int64) string {
	return s.prefix + "/" + strconv.FormatInt(matchID, 10)
}

func (s *MatchSource) Subscribe(ctx context.Context, matchID int64) (<-chan livefeed.Snapshot, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id %d", matchID)
	}

	snapshots, first, _ := s.hub.Add(ctx, matchID)
	if first {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.subscribeFirst(matchID)
		}()
	}
	return snapshots, nil
}

// subscribeFirst runs off the caller's goroutine since the broker round trip
// can take up to the wait timeout. A failure is delivered as an error
// snapshot; the topic is retried by the next Resubscribe.
func (s *MatchSource) subscribeFirst(matchID int64) {
	if err := s.subscribe(matchID); err != nil {
		s.hub.Offer(matchID, livefeed.Snapshot{Err: err, ReceivedAt: s.now().UTC()})
		return
	}
	if !s.hub.Subscribed(matchID) {
		s.unsubscribe(matchID)
	}
}

// Resubscribe restores broker subscriptions for every followed match. Use it
// as the client's OnConnect handler when sessions are clean.
func (s *MatchSource) Resubscribe() {
	for _, matchID := range s.hub.Matches() {
		if err := s.subscribe(matchID); err != nil {
			s.logger.Warn("mqtt resubscribe failed", "match_id", matchID, "error", err)
		}
	}
}

// Close closes every subscription channel and waits for pending broker subscribes.
func (s *MatchSource) Close() {
	s.hub.Close()
	s.wg.Wait()
}

func (s *MatchSource) subscribe(matchID int64) error {
	topic := s.Topic(matchID)
	token := s.client.Subscribe(topic, s.qos, s.onMessage)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("subscribe %s: timed out after %s", topic, s.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	s.logger.Info("subscribed to match topic", "topic", topic)
	return nil
}

func (s *MatchSource) unsubscribe(matchID int64) {
	topic := s.Topic(matchID)
	token := s.client.Unsubscribe(topic)
	if !token.WaitTimeout(s.timeout) {
		s.logger.Warn("mqtt unsubscribe timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		s.logger.Warn("mqtt unsubscribe failed", "topic", topic, "error", err)
	}
}

func (s *MatchSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	matchID, ok := s.matchIDFromTopic(msg.Topic())
	if !ok {
		s.logger.Warn("ignore message on unexpected topic", "topic", msg.Topic())
		return
	}

	snapshot := livefeed.Snapshot{ReceivedAt: s.now().UTC()}
	payload := msg.Payload()
	if len(payload) > 0 {
		doc := make(map[string]any)
		if err := sonic.Unmarshal(payload, &doc); err != nil {
			snapshot.Err = fmt.Errorf("decode match %d payload: %w", matchID, err)
		} else {
			snapshot.Doc = doc
		}
	}
	s.hub.Offer(matchID, snapshot)
}

func (s *MatchSource) matchIDFromTopic(topic string) (int64, bool) {
	rest, ok := strings.CutPrefix(topic, s.prefix+"/")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
