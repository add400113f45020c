package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	productRepo "github.com/mzholdas/order-saga/internal/product/repository"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/logging"
	outboxDomain "github.com/mzholdas/order-saga/pkg/outbox/domain"
	"github.com/mzholdas/order-saga/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type InventoryService interface {
	// HandleOrderCreated reserves stock for the order and queues the outcome
	// event, all inside the caller's transaction.
	HandleOrderCreated(ctx context.Context, tx pgx.Tx, env *event.Envelope) error
	// HandlePaymentFailed returns reserved stock and queues InventoryReleased.
	HandlePaymentFailed(ctx context.Context, tx pgx.Tx, env *event.Envelope) error
}

type inventoryService struct {
	logger      *zap.Logger
	productRepo productRepo.ProductRepository
	outboxRepo  worker.OutboxRepository
	tracer      trace.Tracer
}

func NewInventoryService(logger *zap.Logger, products productRepo.ProductRepository, outboxRepo worker.OutboxRepository) InventoryService {
	return &inventoryService{
		logger:      logger,
		productRepo: products,
		outboxRepo:  outboxRepo,
		tracer:      otel.Tracer("inventory_service"),
	}
}

func (s *inventoryService) HandleOrderCreated(ctx context.Context, tx pgx.Tx, env *event.Envelope) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.HandleOrderCreated")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", env.OrderID))

	payload, err := orderPayload(env)
	if err != nil {
		return err
	}

	err = s.productRepo.ReserveStock(ctx, tx, payload.Product, payload.Quantity)
	switch {
	case err == nil:
		logging.Info(
			ctx,
			s.logger,
			"Stock reserved",
			zap.String("order_id", env.OrderID),
			zap.String("product", payload.Product),
			zap.Int32("quantity", payload.Quantity),
		)

		// The payload travels with the event so the release path knows what
		// to put back without a lookup.
		return s.saveOutboxEvent(ctx, tx, env.OrderID, event.TypeInventoryReserved, payload, "")
	case errors.Is(err, productRepo.ErrInsufficientStock), errors.Is(err, productRepo.ErrProductNotFound):
		reason := "Insufficient stock"
		if errors.Is(err, productRepo.ErrProductNotFound) {
			reason = "Unknown product"
		}

		logging.Warn(
			ctx,
			s.logger,
			"Stock reservation rejected",
			zap.String("order_id", env.OrderID),
			zap.String("product", payload.Product),
			zap.String("reason", reason),
		)

		return s.saveOutboxEvent(ctx, tx, env.OrderID, event.TypeReservationFailed, nil, reason)
	default:
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
}

func (s *inventoryService) HandlePaymentFailed(ctx context.Context, tx pgx.Tx, env *event.Envelope) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.HandlePaymentFailed")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", env.OrderID))

	payload, err := orderPayload(env)
	if err != nil {
		// An event without a payload gives us nothing to put back. Emit the
		// release anyway so the order still gets cancelled.
		logging.Warn(
			ctx,
			s.logger,
			"PaymentFailed carries no order payload, skipping stock release",
			zap.String("order_id", env.OrderID),
			zap.Error(err),
		)

		return s.saveOutboxEvent(ctx, tx, env.OrderID, event.TypeInventoryReleased, nil, "")
	}

	if err := s.productRepo.ReleaseStock(ctx, tx, payload.Product, payload.Quantity); err != nil {
		if errors.Is(err, productRepo.ErrProductNotFound) {
			logging.Warn(
				ctx,
				s.logger,
				"Product vanished before stock release",
				zap.String("order_id", env.OrderID),
				zap.String("product", payload.Product),
			)
		} else {
			return fmt.Errorf("failed to release stock: %w", err)
		}
	} else {
		logging.Info(
			ctx,
			s.logger,
			"Stock released",
			zap.String("order_id", env.OrderID),
			zap.String("product", payload.Product),
			zap.Int32("quantity", payload.Quantity),
		)
	}

	return s.saveOutboxEvent(ctx, tx, env.OrderID, event.TypeInventoryReleased, nil, "")
}

func orderPayload(env *event.Envelope) (*event.OrderPayload, error) {
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("event %s has no payload", env.EventType)
	}

	var payload event.OrderPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order payload: %w", err)
	}

	return &payload, nil
}

func (s *inventoryService) saveOutboxEvent(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload any, reason string) error {
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
