package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mzholdas/order-saga/internal/inventory/service"
	inventoryKafka "github.com/mzholdas/order-saga/internal/inventory/transport/kafka"
	productRepository "github.com/mzholdas/order-saga/internal/product/repository"
	"github.com/mzholdas/order-saga/pkg/config"
	"github.com/mzholdas/order-saga/pkg/db"
	"github.com/mzholdas/order-saga/pkg/kafka"
	"github.com/mzholdas/order-saga/pkg/logging"
	outboxRepository "github.com/mzholdas/order-saga/pkg/outbox/repository"
	"github.com/mzholdas/order-saga/pkg/outbox/worker"
	"github.com/mzholdas/order-saga/pkg/tracing"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := tracing.Init(ctx, "inventory-service")
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

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()

	products := productRepository.NewProductRepository(pool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(logger)
	inventoryService := service.NewInventoryService(logger, products, outboxRepo)

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}
	defer producer.Close()

	relay := worker.NewRelay(
		pool,
		outboxRepo,
		producer,
		logger,
		worker.WithInterval(cfg.Outbox.PollInterval),
		worker.WithBatchSize(cfg.Outbox.BatchSize),
		worker.WithMaxAttempts(cfg.Outbox.MaxAttempts),
	)

	go relay.Start(ctx)

	consumer := inventoryKafka.NewConsumer(pool, inventoryService, logger)
	go func() {
		if err := consumer.Start(ctx, cfg.Kafka.Brokers); err != nil {
			logging.Error(ctx, logger, "Consumer stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	logging.Info(shutdownCtx, logger, "Shutting down inventory service")

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}
}
