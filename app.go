package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tani/internal/cache"
	"tani/internal/config"
	"tani/internal/database"
	"tani/internal/handlers"
	"tani/internal/repositories"
	"tani/internal/services"
	"tani/pkg/rabbitmq"
	redisclient "tani/pkg/redis"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"gorm.io/gorm"
)

// App bundles the HTTP server with the resources it owns.
type App struct {
	Fiber *fiber.App
	DB    *gorm.DB

	log     zerolog.Logger
	closers []func() error
}

// NewApp opens the database, the cache store and the optional fan-out bus, then wires the
// catalog routes.
func NewApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{log: log}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := database.Migrate(db); err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	codec, err := cache.CodecByName(cfg.CacheCodec)
	if err != nil {
		a.Close()
		return nil, err
	}
	productCache := cache.NewProductCache(store, codec, cfg.CacheTimeout)

	var gateOpts []cache.GateOption
	var mq *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange}, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, mq.Close)
		gateOpts = append(gateOpts, cache.WithNotifier(invalidationPublisher{mq: mq}, uuid.NewString()))
	}
	gate := cache.NewGate(productCache, log, gateOpts...)
	if mq != nil {
		if err := mq.ConsumeEvents(invalidationHandler(gate)); err != nil {
			a.Close()
			return nil, err
		}
	}

	productRepo := repositories.NewGORMProductRepository(db)
	productService := services.NewProductService(productRepo, productCache, gate, services.TTLs{
		Snapshot:        cfg.SnapshotTTL,
		Single:          cfg.SingleTTL,
		SnapshotPromote: cfg.SnapshotPromoteTTL,
		Search:          cfg.SearchTTL,
	}, log)
	productHandler := handlers.NewProductHandler(productService, log)

	app := fiber.New()
	app.Use(logger.New()) // Request logger

	apiV1 := app.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)

	app.Get("/health", a.handleHealth)

	a.Fiber = app
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	switch cfg.CacheDriver {
	case "redis":
		rc := redisclient.Config{
			URL:          cfg.RedisURL,
			ReadTimeout:  cfg.RedisReadTimeout,
			WriteTimeout: cfg.RedisWriteTimeout,
			DialTimeout:  cfg.RedisDialTimeout,
		}
		client, err := rc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return cache.NewRedisStore(client), nil
	case "memory":
		return cache.NewMemoryStore(cache.MemoryConfig{
			Capacity: cfg.CacheCapacity,
			MaxTTL:   longest(cfg.SnapshotTTL, cfg.SingleTTL, cfg.SnapshotPromoteTTL, cfg.SearchTTL),
		})
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.CacheDriver)
	}
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if sqlDB, err := a.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// invalidationPublisher sends gate invalidations over the fanout exchange.
type invalidationPublisher struct {
	mq *rabbitmq.Client
}

func (p invalidationPublisher) PublishInvalidation(ctx context.Context, inv cache.Invalidation) error {
	return p.mq.PublishEvent(ctx, inv)
}

// invalidationHandler applies invalidations published by other replicas.
func invalidationHandler(gate *cache.Gate) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var inv cache.Invalidation
		if err := json.Unmarshal(msg.Body, &inv); err != nil {
			return fmt.Errorf("failed to decode invalidation: %w", err)
		}
		gate.Apply(context.Background(), inv)
		return nil
	}
}

func longest(ds ...time.Duration) time.Duration {
	var out time.Duration
	for _, d := range ds {
		if d > out {
			out = d
		}
	}
	return out
}
