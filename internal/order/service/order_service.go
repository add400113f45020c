package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/internal/order/domain"
	"github.com/mzholdas/order-saga/internal/order/repository"
	"github.com/mzholdas/order-saga/pkg/db"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/logging"
	outboxDomain "github.com/mzholdas/order-saga/pkg/outbox/domain"
	"github.com/mzholdas/order-saga/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CreateOrderRequest struct {
	Product  string `json:"product" validate:"required"`
	Quantity int32  `json:"quantity" validate:"required,gt=0"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (string, error)
	CancelOrder(ctx context.Context, tx pgx.Tx, orderID string) error
	CompleteOrder(ctx context.Context, tx pgx.Tx, orderID string) error
}

type orderService struct {
	pool       db.Pool
	logger     *zap.Logger
	orderRepo  repository.OrderRepository
	outboxRepo worker.OutboxRepository
	tracer     trace.Tracer
}

func NewOrderService(pool db.Pool, logger *zap.Logger, orderRepo repository.OrderRepository, outboxRepo worker.OutboxRepository) OrderService {
	return &orderService{
		pool:       pool,
		logger:     logger,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		tracer:     otel.Tracer("order_service"),
	}
}

// CreateOrder persists the order and its OrderCreated outbox row in one
// transaction. Either both commit or neither does; notifying the rest of the
// system is the relay's job.
func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logging.Warn(
				cleanupCtx,
				s.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	order := &domain.Order{
		ID:       uuid.New().String(),
		Product:  req.Product,
		Quantity: req.Quantity,
		Status:   domain.OrderStatusCreated,
	}

	span.SetAttributes(
		attribute.String("order_id", order.ID),
	)

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		logging.Error(
			ctx,
			s.logger,
			"Failed to create order",
			zap.Error(err),
		)

		return "", fmt.Errorf("failed to create order: %w", err)
	}

	env, err := event.New(event.TypeOrderCreated, order.ID, event.OrderPayload{
		Product:  order.Product,
		Quantity: order.Quantity,
	})
	if err != nil {
		return "", err
	}

	if err := s.saveOutboxEvent(ctx, tx, order.ID, env); err != nil {
		logging.Error(
			ctx,
			s.logger,
			"Failed to save outbox event",
			zap.Error(err),
		)

		return "", fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(
			ctx,
			s.logger,
			"Failed to commit transaction",
			zap.Error(err),
		)

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info(
		ctx,
		s.logger,
		"Order persisted with outbox event",
		zap.String("order_id", order.ID),
	)

	return order.ID, nil
}

// CancelOrder marks the order CANCELLED inside the caller's transaction.
// Reapplying on a redelivered event is a no-op; a completed order is never
// cancelled.
func (s *orderService) CancelOrder(ctx context.Context, tx pgx.Tx, orderID string) error {
	return s.changeStatus(ctx, tx, orderID, domain.OrderStatusCancelled)
}

// CompleteOrder marks the order COMPLETED inside the caller's transaction.
func (s *orderService) CompleteOrder(ctx context.Context, tx pgx.Tx, orderID string) error {
	return s.changeStatus(ctx, tx, orderID, domain.OrderStatusCompleted)
}

func (s *orderService) changeStatus(ctx context.Context, tx pgx.Tx, orderID string, target domain.OrderStatus) error {
	current, err := s.orderRepo.GetStatus(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			logging.Warn(
				ctx,
				s.logger,
				"Order not found",
				zap.String("order_id", orderID),
			)

			return fmt.Errorf("order %s not found: %w", orderID, err)
		}

		return err
	}

	if current == target {
		return nil
	}

	if current.Terminal() {
		logging.Warn(
			ctx,
			s.logger,
			"Ignoring status change for terminal order",
			zap.String("order_id", orderID),
			zap.String("current", string(current)),
			zap.String("target", string(target)),
		)

		return nil
	}

	return s.orderRepo.ChangeOrderStatus(ctx, tx, orderID, target)
}

func (s *orderService) saveOutboxEvent(ctx context.Context, tx pgx.Tx, aggregateID string, env *event.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	topic, err := event.TopicFor(env.EventType)
	if err != nil {
		return err
	}

	return s.outboxRepo.SaveEvent(ctx, tx, &outboxDomain.OutboxEvent{
		AggregateID: aggregateID,
		EventType:   env.EventType,
		Payload:     payload,
		Topic:       topic,
	})
}
