package daemon

import (
	"context"
	"fmt"
	"net/http"

	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/backend"
	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/config"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/matheus3301/crmlive/internal/feed/amqpfeed"
	"github.com/matheus3301/crmlive/internal/feed/pgnotify"
	"github.com/matheus3301/crmlive/internal/feed/realtime"
	"github.com/matheus3301/crmlive/internal/livesync"
	"github.com/matheus3301/crmlive/internal/lock"
	"github.com/matheus3301/crmlive/internal/logging"
	"github.com/matheus3301/crmlive/internal/mailthread"
	"github.com/matheus3301/crmlive/internal/notify"
	"github.com/matheus3301/crmlive/internal/session"
	"github.com/matheus3301/crmlive/internal/status"
	"github.com/matheus3301/crmlive/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	// Config overrides the on-disk settings when set.
	Config *config.Session
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideBackend,
			provideFeed,
			provideNotifications,
			provideDirectory,
			provideMailCache,
			provideScopes,
			provideNotificationService,
			provideConversationService,
			provideMailService,
			provideSessionService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Session, error) {
	cfg := p.Config
	if cfg == nil {
		var err error
		if cfg, err = session.LoadConfig(p.SessionName); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session %q: %w", p.SessionName, err)
	}
	return cfg, nil
}

func provideLogger(p Params, cfg *config.Session) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBackend(cfg *config.Session, logger *zap.Logger) (*backend.Client, error) {
	return backend.New(cfg.API.BaseURL, cfg.Operator.ID,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		backend.WithLogger(logger.Named("backend")),
	)
}

func provideFeed(cfg *config.Session, logger *zap.Logger) (feed.Feed, error) {
	logger = logger.Named("feed").With(zap.String("driver", cfg.Feed.Driver))
	switch cfg.Feed.Driver {
	case config.DriverRealtime:
		rt := cfg.Feed.Realtime
		return realtime.New(realtime.Config{
			URL:       rt.URL,
			APIKey:    rt.APIKey,
			Schema:    rt.Schema,
			Table:     rt.Table,
			Heartbeat: rt.Heartbeat,
		}, logger), nil
	case config.DriverPostgres:
		return pgnotify.New(cfg.Feed.Postgres.DSN, cfg.Feed.Postgres.Channel, logger), nil
	case config.DriverAMQP:
		return amqpfeed.New(amqpfeed.Config{
			URL:      cfg.Feed.AMQP.URL,
			Exchange: cfg.Feed.AMQP.Exchange,
		}, logger), nil
	case config.DriverMemory:
		logger.Warn("memory feed only carries events published inside this process")
		return feed.NewHub(), nil
	default:
		return nil, fmt.Errorf("unknown feed driver %q", cfg.Feed.Driver)
	}
}

func provideNotifications(b *bus.Bus) *notify.Store {
	return notify.NewStore(b)
}

func provideDirectory(client *backend.Client, db *store.DB, logger *zap.Logger) *livesync.Directory {
	dir := livesync.NewDirectory(client, db, logger.Named("directory"))
	if err := dir.Warm(); err != nil {
		logger.Warn("client cache unreadable, names resolve after the first refresh", zap.Error(err))
	}
	return dir
}

func provideMailCache() *mailthread.Cache {
	return mailthread.NewCache()
}

func provideScopes(
	cfg *config.Session,
	f feed.Feed,
	client *backend.Client,
	dir *livesync.Directory,
	notes *notify.Store,
	b *bus.Bus,
	machine *status.Machine,
	logger *zap.Logger,
) *Scopes {
	return newScopes(
		livesync.New(f, client, dir, notes, b, logger.Named("global")),
		livesync.New(f, client, dir, notes, b, logger.Named("conversation")),
		cfg.Operator.PhoneNumber,
		machine,
		logger,
	)
}

func provideNotificationService(p Params, notes *notify.Store, b *bus.Bus, logger *zap.Logger) *api.NotificationService {
	return api.NewNotificationService(p.SessionName, notes, b, logger)
}

func provideConversationService(p Params, cfg *config.Session, sc *Scopes, dir *livesync.Directory, client *backend.Client, b *bus.Bus, logger *zap.Logger) *api.ConversationService {
	return api.NewConversationService(p.SessionName, sc.Conversation, dir, client, cfg.Operator, b, logger)
}

func provideMailService(client *backend.Client, dir *livesync.Directory, cache *mailthread.Cache, b *bus.Bus, logger *zap.Logger) *api.MailThreadService {
	return api.NewMailThreadService(client, dir, cache, b, logger)
}

func provideSessionService(p Params, cfg *config.Session, m *status.Machine, sc *Scopes, dir *livesync.Directory, notes *notify.Store) *api.SessionService {
	return api.NewSessionService(p.SessionName, m, sc.Global, dir, notes, sc, cfg.Operator, cfg.Feed.Driver)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, sc *Scopes, machine *status.Machine, b *bus.Bus, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			go sc.watchFeedErrors(runCtx, b)

			go func() {
				if err := sc.ActivateGlobal(runCtx); err != nil {
					logger.Error("notification feed unavailable", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			_ = machine.Transition(status.Stopping)
			_ = sc.Conversation.Deactivate(ctx)
			_ = sc.Global.Deactivate(ctx)
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
