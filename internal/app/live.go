package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/rugby-live/internal/config"
	"github.com/riskibarqy/rugby-live/internal/infrastructure/mqttfeed"
	"github.com/riskibarqy/rugby-live/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/rugby-live/internal/livefeed"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

var errLiveSourceDisabled = errors.New("live source is disabled")

// disabledSource refuses every subscription when LIVE_SOURCE=none.
type disabledSource struct{}

func (disabledSource) Subscribe(context.Context, int64) (<-chan livefeed.Snapshot, error) {
	return nil, errLiveSourceDisabled
}

// liveSource bundles a livefeed.Source with its background loop and teardown.
type liveSource struct {
	source livefeed.Source
	run    func(ctx context.Context) error
	close  func() error
}

func buildLiveSource(cfg config.Config, db *sqlx.DB, logger *logging.Logger) (liveSource, error) {
	switch cfg.LiveSource {
	case config.LiveSourcePostgres:
		return postgresLiveSource(cfg, db, logger)
	case config.LiveSourceMQTT:
		return mqttLiveSource(cfg, logger)
	default:
		logger.Info("live source disabled", "reason", "LIVE_SOURCE=none")
		return liveSource{source: disabledSource{}}, nil
	}
}

func postgresLiveSource(cfg config.Config, db *sqlx.DB, logger *logging.Logger) (liveSource, error) {
	if db == nil {
		return liveSource{}, fmt.Errorf("postgres live source requires a database")
	}

	pgLogger := logger.Named("pq_listener")
	listener := pq.NewListener(listenerDSN(cfg).String(), time.Second, time.Minute,
		func(event pq.ListenerEventType, err error) {
			switch event {
			case pq.ListenerEventDisconnected:
				pgLogger.Warn("postgres listener disconnected", "error", err)
			case pq.ListenerEventReconnected:
				pgLogger.Info("postgres listener reconnected")
			case pq.ListenerEventConnectionAttemptFailed:
				pgLogger.Warn("postgres listener connection attempt failed", "error", err)
			}
		})

	source := postgres.NewMatchDocumentSource(db, listener, postgres.MatchDocumentSourceConfig{
		EventLimit: cfg.LiveEventLimit,
		Logger:     logger,
	})
	return liveSource{source: source, run: source.Run, close: source.Close}, nil
}

func mqttLiveSource(cfg config.Config, logger *logging.Logger) (liveSource, error) {
	var current atomic.Pointer[mqttfeed.MatchSource]

	client, err := mqttfeed.Connect(mqttfeed.ConnectConfig{
		Broker:   cfg.MQTTBroker,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		ClientID: cfg.MQTTClientID,
		Logger:   logger,
		OnConnect: func() {
			if source := current.Load(); source != nil {
				source.Resubscribe()
			}
		},
	})
	if err != nil {
		return liveSource{}, fmt.Errorf("connect mqtt: %w", err)
	}

	source := mqttfeed.NewMatchSource(client, mqttfeed.SourceConfig{
		TopicPrefix: cfg.MQTTTopicPrefix,
		QoS:         mqttfeed.QoSAtLeastOnce,
		Logger:      logger,
	})
	current.Store(source)

	return liveSource{
		source: source,
		close: func() error {
			source.Close()
			client.Disconnect(250)
			return nil
		},
	}, nil
}
