package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/mzholdas/order-saga/internal/query/readmodel"
	queryHttp "github.com/mzholdas/order-saga/internal/query/transport/http"
	queryKafka "github.com/mzholdas/order-saga/internal/query/transport/kafka"
	"github.com/mzholdas/order-saga/pkg/config"
	"github.com/mzholdas/order-saga/pkg/logging"
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

	tp, err := tracing.Init(ctx, "query-service")
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

	store := readmodel.NewStore(logger)

	projector := queryKafka.NewProjector(store, logger)
	go func() {
		if err := projector.Start(ctx, cfg.Kafka.Brokers); err != nil {
			logging.Error(ctx, logger, "Projector stopped", zap.Error(err))
		}
	}()

	app := fiber.New()
	queryHttp.RegisterRoutes(app, queryHttp.NewQueryHandler(store))

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	logging.Info(shutdownCtx, logger, "Shutting down query service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down http server", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}
}
