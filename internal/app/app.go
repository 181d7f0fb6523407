package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/riskibarqy/rugby-live/external/fcm"
	"github.com/riskibarqy/rugby-live/external/liveactivity"
	"github.com/riskibarqy/rugby-live/external/rugbyapi"
	"github.com/riskibarqy/rugby-live/internal/config"
	"github.com/riskibarqy/rugby-live/internal/domain/team"
	"github.com/riskibarqy/rugby-live/internal/domain/user"
	"github.com/riskibarqy/rugby-live/internal/fanout"
	repocache "github.com/riskibarqy/rugby-live/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/rugby-live/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/rugby-live/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/rugby-live/internal/interfaces/httpapi"
	"github.com/riskibarqy/rugby-live/internal/livefeed"
	"github.com/riskibarqy/rugby-live/internal/platform/cache"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/push"
	"github.com/riskibarqy/rugby-live/internal/usecase"
)

const (
	shutdownTimeout    = 10 * time.Second
	cacheSweepInterval = time.Minute
	followerCacheTTL   = 30 * time.Second
)

// App owns the HTTP server and the live pipeline:
// source -> livefeed.Listener -> fanout.Dispatcher -> buses -> notifications and websocket clients.
type App struct {
	logger        *logging.Logger
	server        *http.Server
	db            *sqlx.DB
	live          liveSource
	listener      *livefeed.Listener
	buses         fanout.Buses
	cache         *cache.Store
	notifications *usecase.NotificationService
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{logger: logger.Named("app"), cache: cache.NewStore(cfg.CacheTTL)}

	var (
		userRepo user.Repository
		teamRepo team.Repository
	)
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		db, err := openDB(ctx, cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.db = db
		userRepo = repocache.NewUserRepository(postgres.NewUserRepository(db), a.cache, followerCacheTTL)
		teamRepo = postgres.NewTeamRepository(db)
	default:
		logger.Warn("using in-memory repositories", "storage_driver", cfg.StorageDriver)
		userRepo = memory.NewUserRepository(nil)
		teamRepo = memory.NewTeamRepository(cfg.TeamsTTL)
	}
	leagueRepo := memory.NewLeagueRepository(cfg.Leagues)

	provider := rugbyapi.NewClient(rugbyapi.ClientConfig{
		BaseURL:        cfg.RugbyAPIBaseURL,
		APIKey:         cfg.RugbyAPIKey,
		Timeout:        cfg.RugbyAPITimeout,
		MaxRetries:     cfg.RugbyAPIMaxRetries,
		Logger:         logger,
		CircuitBreaker: cfg.RugbyAPICircuit,
	})
	matchSvc := usecase.NewMatchService(provider, leagueRepo, teamRepo, a.cache, usecase.MatchServiceConfig{
		CacheTTL:     cfg.CacheTTL,
		LiveCacheTTL: cfg.LiveCacheTTL,
		Logger:       logger,
	})

	var activity fanout.LiveActivityUpdater
	if cfg.LiveActivityURL != "" {
		updater, err := liveactivity.NewWebhookUpdater(liveactivity.WebhookConfig{
			URL:            cfg.LiveActivityURL,
			Token:          cfg.LiveActivityToken,
			Retries:        cfg.LiveActivityRetries,
			Logger:         logger,
			CircuitBreaker: cfg.LiveActivityCircuit,
		})
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("build live activity updater: %w", err)
		}
		activity = updater
	}

	a.buses = fanout.NewBuses(cfg.BusBuffer, logger)
	dispatcher := fanout.NewDispatcher(fanout.DispatcherConfig{
		Buses:    a.buses,
		Activity: activity,
		Logger:   logger,
	})

	live, err := buildLiveSource(cfg, a.db, logger)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	a.live = live
	a.listener = livefeed.NewListener(live.source, dispatcher, livefeed.Config{
		EventLimit: cfg.LiveEventLimit,
		Logger:     logger,
	})

	messenger, err := buildMessenger(ctx, cfg, logger)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	relay := push.NewRelay(messenger, push.RelayConfig{
		BatchSize: cfg.PushBatchSize,
		Workers:   cfg.PushWorkers,
		Logger:    logger,
	})
	a.notifications = usecase.NewNotificationService(relay, userRepo, logger)

	liveSvc := usecase.NewLiveService(a.listener, dispatcher.Published())
	handler := httpapi.NewHandler(httpapi.HandlerConfig{
		Matches:       matchSvc,
		Live:          liveSvc,
		Notifications: a.notifications,
		InternalToken: cfg.InternalToken,
		Logger:        logger,
	})
	stream := httpapi.NewLiveStream(httpapi.LiveStreamConfig{
		Buses:          a.buses,
		Live:           liveSvc,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	if cfg.HTTPAddr == "" {
		a.closeResources()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	a.server = &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.RouterConfig{
			Handler:            handler,
			Stream:             stream,
			Logger:             logger,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return a, nil
}

func buildMessenger(ctx context.Context, cfg config.Config, logger *logging.Logger) (push.Messenger, error) {
	if !cfg.PushEnabled {
		logger.Info("push delivery disabled", "reason", "PUSH_ENABLED=false")
		return push.NewDryRunMessenger(logger), nil
	}

	client, err := fcm.NewMessagingClient(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("build fcm client: %w", err)
	}
	return fcm.NewMessenger(client, fcm.MessengerConfig{
		Logger:         logger,
		CircuitBreaker: cfg.FCMCircuit,
	}), nil
}

// Run serves HTTP and the live pipeline until ctx is done, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.notifications.Run(gctx, a.buses)
		return nil
	})
	if a.live.run != nil {
		g.Go(func() error {
			if err := a.live.run(gctx); err != nil {
				return fmt.Errorf("live source: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		a.sweepCache(gctx)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("http server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) sweepCache(ctx context.Context) {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.cache.Sweep(); removed > 0 {
				a.logger.Debug("cache swept", "removed", removed)
			}
		}
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	a.listener.Close()
	a.buses.Close()
	errs = append(errs, a.closeResources())

	a.logger.Info("app stopped")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	if a.live.close != nil {
		if err := a.live.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}
