package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/mzholdas/order-saga/internal/query/readmodel"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/kafka"
	"github.com/mzholdas/order-saga/pkg/logging"
	"go.uber.org/zap"
)

const groupID = "query-group"

// Projector tails every saga topic and folds the events into the in-memory
// read model. The store tolerates duplicates on its own, so no database
// deduplication is needed here.
type Projector struct {
	store  *readmodel.Store
	logger *zap.Logger
}

func NewProjector(store *readmodel.Store, logger *zap.Logger) *Projector {
	return &Projector{
		store:  store,
		logger: logger,
	}
}

func (p *Projector) Start(ctx context.Context, brokers []string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{
			event.TopicOrderCreated,
			event.TopicInventoryReserved,
			event.TopicReservationFailed,
			event.TopicPaymentFailed,
			event.TopicPaymentCompleted,
			event.TopicInventoryReleased,
		},
		p.processMessage,
		p.logger,
	)

	return consumerGroup.Run(ctx)
}

func (p *Projector) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := event.Parse(msg.Value)
	if err != nil {
		logging.Error(ctx, p.logger, "Error unmarshalling envelope", zap.Error(err))
		return err
	}

	p.store.Apply(ctx, env)

	return nil
}
