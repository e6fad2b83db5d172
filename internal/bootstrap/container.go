package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinician-dashboard-be/internal/config"
	"clinician-dashboard-be/internal/controller"
	"clinician-dashboard-be/internal/handler"
	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/internal/repository/contract"
	"clinician-dashboard-be/internal/repository/implementation"
	"clinician-dashboard-be/internal/repository/memory"
	"clinician-dashboard-be/internal/service"
	"clinician-dashboard-be/internal/websocket"
	"clinician-dashboard-be/pkg/clinicapi"
	"clinician-dashboard-be/pkg/conversation"
	"clinician-dashboard-be/pkg/database"
	"clinician-dashboard-be/pkg/dispatch"
	pktNats "clinician-dashboard-be/pkg/nats"
	"clinician-dashboard-be/pkg/notify"
	"clinician-dashboard-be/pkg/sessiontimer"
	"clinician-dashboard-be/pkg/tabs"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"

	redisPingTimeout = 3 * time.Second
)

type Container struct {
	// Controllers
	ConversationController controller.IConversationController
	SessionController      controller.ISessionController
	TabController          controller.ITabController
	NotificationController controller.INotificationController
	LogController          controller.ILogController

	// WebSockets
	WebSocketHandler *handler.WebSocketHandler
	WebSocketHub     *websocket.Hub

	// Background services, started by Start
	NotificationService service.INotificationService

	Logger logger.ILogger

	timer      *sessiontimer.Timer
	dispatcher *dispatch.Dispatcher
	tabs       *tabs.Manager
	pubSub     *gochannel.GoChannel
	natsPub    *pktNats.Publisher
	closeKV    func() error
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Loggers
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	notifLogger := logger.NewIsolatedLogger(cfg.App.NotificationLogPath)
	return newContainer(cfg, sysLogger, notifLogger)
}

// NewContainerWithLogger wires every component against one logger. Tests use it
// with a no-op logger.
func NewContainerWithLogger(cfg *config.Config, log logger.ILogger) (*Container, error) {
	return newContainer(cfg, log, log)
}

func newContainer(cfg *config.Config, sysLogger, notifLogger logger.ILogger) (*Container, error) {
	// 2. Storage
	kv, closeKV, err := openKeyValueStore(cfg.Storage, sysLogger)
	if err != nil {
		return nil, err
	}

	// 3. Event bus. Publishing blocks until the notification service acks so
	// session events are derived in the order the timer emits them.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		logger.NewWatermillAdapter(notifLogger),
	)

	var mirror service.EventMirror
	var natsPub *pktNats.Publisher
	if cfg.Events.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.Events.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS, session events stay local", map[string]interface{}{"error": err})
			natsPub = nil
		} else {
			mirror = natsPub
		}
	}
	publisherService := service.NewPublisherService(cfg.Events.Topic, pubSub, mirror, sysLogger)

	// 4. Core components
	wsHub := websocket.NewHub(notifLogger)

	timer := sessiontimer.New(cfg.Dashboard.SessionCeilingSeconds, cfg.Dashboard.TickInterval, publisherService, sysLogger)

	store := conversation.NewStore(timer)
	store.SetObserver(wsHub)

	upstream := clinicapi.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	dispatcher := dispatch.New(store, upstream, kv, sysLogger, cfg.Upstream.Timeout)

	tabManager := tabs.NewManager(context.Background(), kv, wsHub, store, timer, sysLogger,
		tabs.WithSettleDelay(cfg.Dashboard.TabSettleDelay),
		tabs.WithPersistDebounce(cfg.Dashboard.TabPersistDebounce),
		tabs.WithObserver(wsHub),
	)

	deriver := notify.NewDeriver(cfg.Dashboard.ToastTTL, wsHub, notifLogger)

	// 5. Services
	conversationService := service.NewConversationService(store, dispatcher, kv, sysLogger)
	sessionService := service.NewSessionService(timer, sysLogger)
	tabService := service.NewTabService(tabManager)
	notificationService := service.NewNotificationService(pubSub, cfg.Events.Topic, deriver, notifLogger)

	return &Container{
		ConversationController: controller.NewConversationController(conversationService),
		SessionController:      controller.NewSessionController(sessionService),
		TabController:          controller.NewTabController(tabService),
		NotificationController: controller.NewNotificationController(notificationService),
		LogController:          controller.NewLogController(sysLogger, notifLogger),

		WebSocketHandler: handler.NewWebSocketHandler(wsHub, tabService, conversationService, notifLogger),
		WebSocketHub:     wsHub,

		NotificationService: notificationService,
		Logger:              sysLogger,

		timer:      timer,
		dispatcher: dispatcher,
		tabs:       tabManager,
		pubSub:     pubSub,
		natsPub:    natsPub,
		closeKV:    closeKV,
	}, nil
}

// Start runs the websocket hub and subscribes the notification deriver. Both
// stop when ctx ends.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.NotificationService.Start(ctx); err != nil {
		return fmt.Errorf("start notification service: %w", err)
	}
	return nil
}

// Shutdown ends a running session, waits for in-flight replies and flushes
// the tab list before releasing storage and the event bus.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if subject, ok := c.timer.ActiveSubject(); ok {
		c.timer.EndFor(subject)
	}
	if err := c.dispatcher.Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain dispatcher: %w", err))
	}
	if err := c.tabs.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush tabs: %w", err))
	}
	if err := c.pubSub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.closeKV != nil {
		if err := c.closeKV(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// openKeyValueStore picks the storage backend. An unreachable redis falls back
// to memory so the dashboard still starts.
func openKeyValueStore(cfg config.StorageConfig, log logger.ILogger) (contract.IKeyValueRepository, func() error, error) {
	switch cfg.Driver {
	case StorageMemory:
		return memory.NewKeyValueRepository(), nil, nil

	case StorageSQLite:
		repo, err := implementation.NewSQLiteKeyValueRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		log.Info("Bootstrap", "Using SQLite storage", map[string]interface{}{"path": cfg.SQLitePath})
		return repo, repo.Close, nil

	case StorageRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err})
			opt = &redis.Options{Addr: cfg.RedisURL}
		}
		rdb := redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Bootstrap", "Failed to connect to Redis, falling back to memory storage", map[string]interface{}{"error": err})
			_ = rdb.Close()
			return memory.NewKeyValueRepository(), nil, nil
		}
		log.Info("Bootstrap", "Using Redis storage", map[string]interface{}{"addr": opt.Addr})
		return implementation.NewRedisKeyValueRepository(rdb), rdb.Close, nil

	case StoragePostgres:
		db, err := database.NewGormDBFromDSN(cfg.PostgresDSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo, err := implementation.NewGormKeyValueRepository(db)
		if err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("migrate kv table: %w", err)
		}
		log.Info("Bootstrap", "Using Postgres storage", nil)
		return repo, func() error { return database.Close(db) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
