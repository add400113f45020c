package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/internal/inventory/service"
	"github.com/mzholdas/order-saga/pkg/db"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/kafka"
	"github.com/mzholdas/order-saga/pkg/logging"
	"github.com/mzholdas/order-saga/pkg/outbox/dedup"
	"github.com/mzholdas/order-saga/pkg/retry"
	"go.uber.org/zap"
)

const groupID = "inventory-group"

// Consumer drives the inventory side of the saga: new orders reserve stock,
// failed payments give it back.
type Consumer struct {
	pool    db.Pool
	service service.InventoryService
	logger  *zap.Logger
}

func NewConsumer(pool db.Pool, service service.InventoryService, logger *zap.Logger) *Consumer {
	return &Consumer{
		pool:    pool,
		service: service,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{
			event.TopicOrderCreated,
			event.TopicPaymentFailed,
		},
		c.processMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := event.Parse(msg.Value)
	if err != nil {
		logging.Error(ctx, c.logger, "Error unmarshalling envelope", zap.Error(err))
		return err
	}

	// Deduplication keys on the event id; an envelope without one must not
	// reach ProcessOnce or it would claim (0, group) for every such message.
	if env.EventID == 0 {
		logging.Error(ctx, c.logger, "Envelope missing event id", zap.String("event_type", env.EventType))
		return fmt.Errorf("envelope for order %s missing event id", env.OrderID)
	}

	var apply func(tx pgx.Tx) error

	switch env.EventType {
	case event.TypeOrderCreated:
		apply = func(tx pgx.Tx) error {
			return c.service.HandleOrderCreated(ctx, tx, env)
		}
	case event.TypePaymentFailed:
		apply = func(tx pgx.Tx) error {
			return c.service.HandlePaymentFailed(ctx, tx, env)
		}
	default:
		logging.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", env.EventType))
		return nil
	}

	return dedup.ProcessOnce(ctx, c.pool, c.logger, groupID, env.EventID, retry.DefaultOptions(), apply)
}
