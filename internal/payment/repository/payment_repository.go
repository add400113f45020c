package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mzholdas/order-saga/internal/payment/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

var ErrDuplicatePayment = errors.New("payment already recorded for order")

type PaymentRepository interface {
	// SavePayment runs inside the caller's transaction so the attempt record
	// commits together with the outcome event.
	SavePayment(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	FindByOrderID(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Payment, error)
}

type paymentRepo struct {
	tracer trace.Tracer
	logger *zap.Logger
}

func NewPaymentRepository(logger *zap.Logger) PaymentRepository {
	return &paymentRepo{
		tracer: otel.Tracer("payment/repository"),
		logger: logger,
	}
}

func (r *paymentRepo) SavePayment(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.SavePayment")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", payment.OrderID),
		attribute.String("status", string(payment.Status)),
	)

	query := `
		INSERT INTO payments (order_id, status, reason, transaction_id)
		VALUES ($1, $2, $3, $4)
	`

	_, err := tx.Exec(
		ctx,
		query,
		payment.OrderID,
		payment.Status,
		payment.Reason,
		payment.TransactionID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicatePayment
		}

		span.RecordError(err)

		return fmt.Errorf("failed to save payment: %w", err)
	}

	return nil
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.FindByOrderID")
	defer span.End()

	query := `
		SELECT id, order_id, status, reason, transaction_id, created_at
		FROM payments
		WHERE order_id = $1
	`

	var payment domain.Payment
	err := tx.QueryRow(ctx, query, orderID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Status,
		&payment.Reason,
		&payment.TransactionID,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		span.RecordError(err)

		return nil, fmt.Errorf("failed to find payment: %w", err)
	}

	return &payment, nil
}
