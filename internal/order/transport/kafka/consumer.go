package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/internal/order/service"
	"github.com/mzholdas/order-saga/pkg/db"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/kafka"
	"github.com/mzholdas/order-saga/pkg/logging"
	"github.com/mzholdas/order-saga/pkg/outbox/dedup"
	"github.com/mzholdas/order-saga/pkg/retry"
	"go.uber.org/zap"
)

const groupID = "order-service-group"

// Consumer closes the saga on the order side: compensation events cancel the
// order, a completed payment completes it.
type Consumer struct {
	pool    db.Pool
	service service.OrderService
	logger  *zap.Logger
}

func NewConsumer(pool db.Pool, service service.OrderService, logger *zap.Logger) *Consumer {
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
			event.TopicInventoryReleased,
			event.TopicReservationFailed,
			event.TopicPaymentCompleted,
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

	// Deduplication keys on the event id; without one the first such message
	// would claim (0, group) and silently swallow every later id-less event.
	if env.EventID == 0 {
		logging.Error(ctx, c.logger, "Envelope missing event id", zap.String("event_type", env.EventType))
		return fmt.Errorf("envelope for order %s missing event id", env.OrderID)
	}

	var apply func(tx pgx.Tx) error

	switch env.EventType {
	case event.TypeInventoryReleased, event.TypeReservationFailed:
		apply = func(tx pgx.Tx) error {
			return c.service.CancelOrder(ctx, tx, env.OrderID)
		}
	case event.TypePaymentCompleted:
		apply = func(tx pgx.Tx) error {
			return c.service.CompleteOrder(ctx, tx, env.OrderID)
		}
	default:
		logging.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", env.EventType))
		return nil
	}

	return dedup.ProcessOnce(ctx, c.pool, c.logger, groupID, env.EventID, retry.DefaultOptions(), apply)
}
