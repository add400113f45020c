package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/internal/payment/domain"
	"github.com/mzholdas/order-saga/internal/payment/repository"
	"github.com/mzholdas/order-saga/pkg/breaker"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/logging"
	outboxDomain "github.com/mzholdas/order-saga/pkg/outbox/domain"
	"github.com/mzholdas/order-saga/pkg/outbox/worker"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const reasonProcessorUnavailable = "Payment processor unavailable"

type PaymentService interface {
	// HandleInventoryReserved charges the order and queues the outcome event,
	// all inside the caller's transaction.
	HandleInventoryReserved(ctx context.Context, tx pgx.Tx, env *event.Envelope) error
}

type paymentService struct {
	logger      *zap.Logger
	paymentRepo repository.PaymentRepository
	outboxRepo  worker.OutboxRepository
	processor   Processor
	cb          *gobreaker.CircuitBreaker
	tracer      trace.Tracer
}

func NewPaymentService(logger *zap.Logger, payments repository.PaymentRepository, outboxRepo worker.OutboxRepository, processor Processor) PaymentService {
	return &paymentService{
		logger:      logger,
		paymentRepo: payments,
		outboxRepo:  outboxRepo,
		processor:   processor,
		cb:          breaker.New("payment-processor", logger),
		tracer:      otel.Tracer("payment_service"),
	}
}

func (s *paymentService) HandleInventoryReserved(ctx context.Context, tx pgx.Tx, env *event.Envelope) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleInventoryReserved")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", env.OrderID))

	var payload event.OrderPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal order payload: %w", err)
		}
	}

	result, err := breaker.Execute(s.cb, func() (ChargeResult, error) {
		return s.processor.Charge(ctx, env.OrderID, payload)
	})
	if err != nil {
		// A dead processor is still an outcome: the saga must not stall on
		// it, so the order is failed and the reservation compensated.
		logging.Error(
			ctx,
			s.logger,
			"Payment processor call failed",
			zap.String("order_id", env.OrderID),
			zap.Error(err),
		)

		result = ChargeResult{Approved: false, Reason: reasonProcessorUnavailable}
	}

	payment := &domain.Payment{
		OrderID:       env.OrderID,
		TransactionID: result.TransactionID,
	}

	if result.Approved {
		payment.Status = domain.PaymentStatusCompleted
	} else {
		payment.Status = domain.PaymentStatusDeclined
		payment.Reason = result.Reason
	}

	if err := s.paymentRepo.SavePayment(ctx, tx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			logging.Warn(
				ctx,
				s.logger,
				"Payment already recorded, skipping",
				zap.String("order_id", env.OrderID),
			)

			return nil
		}

		return err
	}

	if result.Approved {
		logging.Info(
			ctx,
			s.logger,
			"Payment completed",
			zap.String("order_id", env.OrderID),
			zap.String("transaction_id", result.TransactionID),
		)

		return s.saveOutboxEvent(ctx, tx, env.OrderID, event.TypePaymentCompleted, nil, "")
	}

	logging.Warn(
		ctx,
		s.logger,
		"Payment failed",
		zap.String("order_id", env.OrderID),
		zap.String("reason", result.Reason),
	)

	// The order payload rides along so inventory knows what to release.
	return s.saveOutboxEvent(ctx, tx, env.OrderID, event.TypePaymentFailed, payload, result.Reason)
}

func (s *paymentService) saveOutboxEvent(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload any, reason string) error {
	env, err := event.New(eventType, orderID, payload)
	if err != nil {
		return err
	}
	env.Reason = reason

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	topic, err := event.TopicFor(eventType)
	if err != nil {
		return err
	}

	return s.outboxRepo.SaveEvent(ctx, tx, &outboxDomain.OutboxEvent{
		AggregateID: orderID,
		EventType:   eventType,
		Payload:     raw,
		Topic:       topic,
	})
}
