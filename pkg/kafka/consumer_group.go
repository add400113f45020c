package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/mzholdas/order-saga/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// ConsumerGroup runs a sarama consumer group loop and dispatches every
// message of the subscribed topics to a single handler. Messages within a
// partition are handled one at a time, in offset order; a message is only
// marked consumed when the handler returns nil.
type ConsumerGroup struct {
	brokers     []string
	groupID     string
	topics      []string
	handlerFunc HandlerFunc
	logger      *zap.Logger
}

func NewConsumerGroup(
	brokers []string,
	groupID string,
	topics []string,
	handlerFunc HandlerFunc,
	logger *zap.Logger,
) *ConsumerGroup {
	return &ConsumerGroup{
		brokers:     brokers,
		groupID:     groupID,
		topics:      topics,
		handlerFunc: handlerFunc,
		logger:      logger,
	}
}

func (c *ConsumerGroup) Run(ctx context.Context) error {
	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.BalanceStrategyRoundRobin}

	group, err := sarama.NewConsumerGroup(c.brokers, c.groupID, config)
	if err != nil {
		return err
	}

	defer func() {
		if err := group.Close(); err != nil {
			logging.Error(ctx, c.logger, "Error closing consumer group", zap.Error(err))
		}
	}()

	consumer := &saramaHandler{
		handler: c.handlerFunc,
		logger:  c.logger,
		tracer:  otel.Tracer("pkg/kafka/consumer"),
	}

	for {
		if err := group.Consume(ctx, c.topics, consumer); err != nil {
			logging.Error(ctx, c.logger, "Error consuming in consumer loop", zap.Error(err))
		}

		if ctx.Err() != nil {
			logging.Info(ctx, c.logger, "Context cancelled, shutting down consumer")
			return nil
		}
	}
}

type saramaHandler struct {
	handler HandlerFunc
	logger  *zap.Logger
	tracer  trace.Tracer
}

func (h *saramaHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *saramaHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *saramaHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		ctx, span := h.extractTracing(session.Context(), msg)

		if err := h.handler(ctx, msg); err != nil {
			// The handler already retried; the message is dropped rather
			// than blocking the partition.
			logging.Error(
				ctx,
				h.logger,
				"Failed to process message",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			span.RecordError(err)
		}

		span.End()
		session.MarkMessage(msg, "")
	}

	return nil
}

func (h *saramaHandler) extractTracing(ctx context.Context, msg *sarama.ConsumerMessage) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		carrier[string(header.Key)] = string(header.Value)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	return h.tracer.Start(ctx, "kafka_process",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}
