package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/taskhub/taskhub-api/internal/api"
	"github.com/taskhub/taskhub-api/internal/broker"
	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/directory"
	"github.com/taskhub/taskhub-api/internal/notify"
	"github.com/taskhub/taskhub-api/internal/platform/postgres"
	"github.com/taskhub/taskhub-api/internal/sched"
	"github.com/taskhub/taskhub-api/internal/service"
	"github.com/taskhub/taskhub-api/internal/service/auth"
)

// notificationTopic and deadLetterTopic name the broker streams the pipeline
// runs on.
const (
	notificationTopic = "notifications"
	deadLetterTopic   = "notifications-dlq"
)

// application holds the wired components and owns their lifecycle.
type application struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sql.DB
	redisCli  *redis.Client
	publisher *notify.Publisher
	consumer  *notify.Consumer
	scheduler *sched.Scheduler
	server    *http.Server
}

// newApplication wires the full service: stores, broker topics, the
// notification pipeline, the workflow engine, schedulers and the HTTP
// server.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	// Database
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, "up"); err != nil {
		return nil, err
	}

	// Stores
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	notifStore := postgres.NewPostgresNotificationStore(db, logger)
	failedStore := postgres.NewPostgresFailedNotificationStore(db, logger)

	// Broker topics
	redisCli := redis.NewClient(&redis.Options{
		Addr:     cfg.Broker.RedisAddr,
		Password: cfg.Broker.RedisPassword,
	})
	if err := redisCli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	topic := broker.NewTopic(redisCli, notificationTopic, cfg.Broker.Partitions, logger)
	deadLetter := broker.NewTopic(redisCli, deadLetterTopic, 1, logger)

	// Directory lookups
	client := directory.NewHTTPClient(
		cfg.Directory.BaseURL,
		time.Duration(cfg.Directory.TimeoutMS)*time.Millisecond,
	)
	resolver := directory.NewResolver(client, directory.ResolverConfig{
		RatePerSecond:           cfg.Directory.RatePerSecond,
		RateBurst:               cfg.Directory.RateBurst,
		RetryAttempts:           cfg.Directory.RetryAttempts,
		RetryBackoff:            time.Duration(cfg.Directory.RetryBackoffMS) * time.Millisecond,
		BreakerFailureThreshold: cfg.Directory.BreakerFailureThreshold,
		BreakerCooldown:         time.Duration(cfg.Directory.BreakerCooldownMS) * time.Millisecond,
	}, logger)

	// Notification pipeline
	publisher := notify.NewPublisher(topic, failedStore, notify.PublisherConfig{
		QueueSize:   cfg.Notify.QueueSize,
		WorkerCount: cfg.Notify.WorkerCount,
	}, logger)
	hub := notify.NewHub(logger)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "taskhub-server"
	}
	consumer := notify.NewConsumer(topic, deadLetter, notifStore, resolver, hub, hostname, logger)

	// Workflow engine
	cache := service.NewViewCache(time.Minute)
	taskService, err := service.NewTaskService(taskStore, publisher, resolver, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	notifService := notify.NewNotificationService(notifStore, logger)

	// Background sweeps
	scheduler := sched.New(cfg.Sched, cfg.Notify.RetentionDays, taskService, notifService, publisher, logger)

	// Auth
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwt service: %w", err)
	}

	// HTTP surface
	managerHandler := api.NewManagerHandler(taskService, logger)
	workerHandler := api.NewWorkerHandler(taskService, logger)
	notificationHandler := api.NewNotificationHandler(notifService, logger)
	wsHandler := api.NewWebSocketHandler(hub, resolver, logger)

	router := buildRouter(routerDeps{
		jwtService:          jwtService,
		managerHandler:      managerHandler,
		workerHandler:       workerHandler,
		notificationHandler: notificationHandler,
		wsHandler:           wsHandler,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &application{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redisCli:  redisCli,
		publisher: publisher,
		consumer:  consumer,
		scheduler: scheduler,
		server:    server,
	}, nil
}

// run starts every component and blocks until ctx is cancelled, then shuts
// them down in reverse order.
func (a *application) run(ctx context.Context) error {
	a.publisher.Start()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- a.consumer.Run(consumerCtx)
	}()

	if err := a.scheduler.Start(); err != nil {
		stopConsumer()
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stopConsumer()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", "error", err)
	}

	a.scheduler.Stop()
	stopConsumer()
	<-consumerDone
	a.publisher.Stop()

	if err := a.redisCli.Close(); err != nil {
		a.logger.Error("failed to close redis client", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
