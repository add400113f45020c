package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/internal/order/domain"
	"github.com/mzholdas/order-saga/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetStatus(ctx context.Context, tx pgx.Tx, orderID string) (domain.OrderStatus, error)
	ChangeOrderStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.OrderStatus) error
}

type orderRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(logger *zap.Logger) OrderRepository {
	return &orderRepo{
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("product", order.Product),
	)

	query := `
		INSERT INTO orders (id, product, quantity, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		order.ID,
		order.Product,
		order.Quantity,
		string(order.Status),
	).Scan(
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		logging.Warn(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

func (r *orderRepo) GetStatus(ctx context.Context, tx pgx.Tx, orderID string) (domain.OrderStatus, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
	)

	query := `
		SELECT status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var status string
	if err := tx.QueryRow(ctx, query, orderID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}

		span.RecordError(err)

		return "", fmt.Errorf("failed to query order status: %w", err)
	}

	return domain.OrderStatus(status), nil
}

func (r *orderRepo) ChangeOrderStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ChangeOrderStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	commandTag, err := tx.Exec(ctx, query, string(status), orderID)
	if err != nil {
		span.RecordError(err)

		logging.Error(
			ctx,
			r.logger,
			"Failed to update order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		logging.Warn(
			ctx,
			r.logger,
			"Order not found",
			zap.String("order_id", orderID),
		)

		return ErrOrderNotFound
	}

	return nil
}
