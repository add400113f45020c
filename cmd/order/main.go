package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/mzholdas/order-saga/internal/order/repository"
	"github.com/mzholdas/order-saga/internal/order/service"
	orderHttp "github.com/mzholdas/order-saga/internal/order/transport/http"
	orderKafka "github.com/mzholdas/order-saga/internal/order/transport/kafka"
	"github.com/mzholdas/order-saga/pkg/config"
	"github.com/mzholdas/order-saga/pkg/db"
	"github.com/mzholdas/order-saga/pkg/idempotency"
	"github.com/mzholdas/order-saga/pkg/kafka"
	"github.com/mzholdas/order-saga/pkg/logging"
	outboxRepository "github.com/mzholdas/order-saga/pkg/outbox/repository"
	"github.com/mzholdas/order-saga/pkg/outbox/worker"
	"github.com/mzholdas/order-saga/pkg/ratelimit"
	"github.com/mzholdas/order-saga/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := tracing.Init(ctx, "order-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{Level: "Info", Env: cfg.Env})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := db.RunMigrations("file://migrations", cfg.Postgres.URL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()

	orderRepo := repository.NewOrderRepository(logger)
	outboxRepo := outboxRepository.NewOutboxRepository(logger)
	orderService := service.NewOrderService(pool, logger, orderRepo, outboxRepo)

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}
	defer producer.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	relay := worker.NewRelay(
		pool,
		outboxRepo,
		producer,
		logger,
		worker.WithInterval(cfg.Outbox.PollInterval),
		worker.WithBatchSize(cfg.Outbox.BatchSize),
		worker.WithMaxAttempts(cfg.Outbox.MaxAttempts),
		worker.WithMetrics(worker.NewMetrics(registry)),
	)

	go relay.Start(ctx)

	consumer := orderKafka.NewConsumer(pool, orderService, logger)
	go func() {
		if err := consumer.Start(ctx, cfg.Kafka.Brokers); err != nil {
			logging.Error(ctx, logger, "Consumer stopped", zap.Error(err))
		}
	}()

	var idempStore idempotency.Store
	if cfg.Env == "local" {
		memStore := idempotency.NewMemoryStore(idempotencyTTL)
		defer memStore.Close()
		idempStore = memStore
	} else {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		idempStore = idempotency.NewRedisStore(rdb, idempotencyTTL)
	}

	limiter := ratelimit.NewSlidingWindow(cfg.Limiter.Window, cfg.Limiter.Limit)
	defer limiter.Close()

	app := fiber.New()
	orderHttp.RegisterRoutes(app, orderHttp.NewOrderHandler(orderService, idempStore, logger), limiter)

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	metricsSrv := &http.Server{
		Addr:    cfg.Metrics.Port,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	logging.Info(shutdownCtx, logger, "Shutting down order service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down http server", zap.Error(err))
	}

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down metrics server", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}
}
