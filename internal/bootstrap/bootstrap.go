// Package bootstrap wires the ledger components from configuration.
// It is shared by the HTTP server and the ledgerctl CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/numbering"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/notification"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired ledger dependencies
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *persistence.Database
	Redis   *redis.Client // nil unless the counter backend or notifications need it
	Bus     *event.InMemoryEventBus
	Service *ledgerapp.Service

	closers []func() error
}

// New connects to the configured stores and builds the ledger service.
// Call Close to release everything New opened.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (app *App, err error) {
	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.DB = db
	app.closers = append(app.closers, db.Close)
	log.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	if cfg.Numbering.Backend == config.NumberingBackendRedis || cfg.Notification.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.Redis = rdb
		app.closers = append(app.closers, rdb.Close)
		log.Info("Redis connected", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	}

	var rdb redis.Cmdable
	if app.Redis != nil {
		rdb = app.Redis
	}
	store, err := NewCounterStore(cfg.Numbering, db.DB, rdb)
	if err != nil {
		return nil, err
	}
	generator := numbering.NewGenerator(store,
		numbering.WithMaxRetries(cfg.Numbering.MaxRetries),
		numbering.WithRetryDelay(cfg.Numbering.RetryDelay),
	)

	app.Bus = event.NewInMemoryEventBus(log, event.WithAsyncDispatch())
	if cfg.Notification.Enabled {
		client := asynq.NewClient(notification.RedisClientOpt(cfg.Redis))
		app.closers = append(app.closers, client.Close)
		dispatcher := notification.NewAsynqDispatcher(client, cfg.Notification.Queue, log)
		app.Bus.Subscribe(ledgerapp.NewVoidNotificationHandler(dispatcher, log))
	}
	if err := app.Bus.Start(ctx); err != nil {
		return nil, fmt.Errorf("start event bus: %w", err)
	}

	app.Service = ledgerapp.NewService(ledgerapp.ServiceConfig{
		Repository:     persistence.NewGormTransactionRepository(db.DB),
		Numbers:        generator,
		EventPublisher: app.Bus,
		AgingWorkers:   cfg.Aging.Workers,
		Logger:         log,
	})

	log.Info("Ledger service ready",
		zap.String("numbering_backend", cfg.Numbering.Backend),
		zap.Bool("notifications", cfg.Notification.Enabled),
	)
	return app, nil
}

// Close drains the event bus, then closes connections in reverse order of opening
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Bus != nil {
		if err := a.Bus.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop event bus: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewCounterStore selects the document sequence backend. rdb is only required for the redis backend.
func NewCounterStore(cfg config.NumberingConfig, db *gorm.DB, rdb redis.Cmdable) (numbering.CounterStore, error) {
	switch cfg.Backend {
	case config.NumberingBackendDatabase, "":
		if db == nil {
			return nil, errors.New("database counter store requires a database connection")
		}
		return persistence.NewGormDocumentSequenceStore(db), nil
	case config.NumberingBackendRedis:
		if rdb == nil {
			return nil, errors.New("redis counter store requires a redis connection")
		}
		return cache.NewRedisCounterStore(rdb, cache.DefaultCounterKeyPrefix), nil
	case config.NumberingBackendMemory:
		return cache.NewInMemoryCounterStore(), nil
	default:
		return nil, fmt.Errorf("unknown numbering backend %q", cfg.Backend)
	}
}
