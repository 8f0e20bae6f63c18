package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gator-forum/internal/auth"
	"gator-forum/internal/config"
	"gator-forum/internal/database"
	"gator-forum/internal/engine"
	"gator-forum/internal/events"
	"gator-forum/internal/forum"
	"gator-forum/internal/handlers"
	"gator-forum/internal/middleware"
	"gator-forum/internal/utils"
	"gator-forum/internal/websocket"
)

// Store is the persistence contract shared by the Mongo and in-memory stores.
type Store interface {
	auth.UserRepository
	forum.PostStore
	forum.UserDirectory
}

var (
	_ Store = (*database.MongoDB)(nil)
	_ Store = (*database.MemoryStore)(nil)
)

// app is the fully wired process. close releases everything in reverse order.
type app struct {
	handler http.Handler
	hub     *websocket.Hub
	engine  *engine.Engine
	closers []func(context.Context) error
	logger  *slog.Logger
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, func(context.Context) error, error) {
	if cfg.Database.Type == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
		return database.NewMemoryStore(), func(context.Context) error { return nil }, nil
	}

	mongoDB, err := database.NewMongoDB(ctx, cfg.Database.URI, cfg.Database.Name, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := mongoDB.EnsureIndexes(ctx); err != nil {
		_ = mongoDB.Close(ctx)
		return nil, nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return mongoDB, mongoDB.Close, nil
}

func newApp(ctx context.Context, cfg *config.Config, store Store, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}
	metrics := utils.NewMetricsCollector()

	authService, err := auth.NewService(store, cfg.Auth, logger.With("component", "auth"))
	if err != nil {
		return nil, err
	}

	a.hub = websocket.NewHub(logger.With("component", "websocket"))
	publishers := events.Multi{a.hub}
	if cfg.Events.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return amqpPublisher.Close() })
		publishers = append(publishers, amqpPublisher)
		logger.Info("publishing events to RabbitMQ", "queue", cfg.Events.AMQPQueue)
	}

	forumService := forum.NewService(store, store, publishers, metrics, cfg.Engine.MutationRetries, logger.With("component", "forum"))
	a.engine = engine.NewEngine(engine.NewActorSystem(logger), forumService, authService, cfg.Engine, metrics, logger.With("component", "engine"))

	if !cfg.Server.MetricsEnabled {
		metrics = nil
	}
	server := handlers.NewServer(
		a.engine,
		middleware.NewGate(authService, logger.With("component", "gate")),
		a.hub,
		middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger),
		metrics,
		cfg.AllowedOrigins,
		cfg.Server.RequestTimeout,
		logger.With("component", "http"),
	)
	server.TrustProxy = cfg.Server.TrustProxy
	a.handler = server.Routes()
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	a.engine.Stop()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
