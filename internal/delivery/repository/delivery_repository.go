package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mzholdas/order-saga/internal/delivery/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.Delivery) error
	FindByID(ctx context.Context, id string) (*domain.Delivery, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error)
	List(ctx context.Context, limit, offset int64) ([]domain.Delivery, error)
	Update(ctx context.Context, delivery *domain.Delivery) error
	SaveConfirmation(ctx context.Context, confirmation *domain.Confirmation) error
}

type deliveryRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewDeliveryRepository(pool *pgxpool.Pool, logger *zap.Logger) DeliveryRepository {
	return &deliveryRepo{
		pool:   pool,
		tracer: otel.Tracer("delivery/repository"),
		logger: logger,
	}
}

func (r *deliveryRepo) Create(ctx context.Context, delivery *domain.Delivery) error {
	ctx, span := r.tracer.Start(ctx, "DeliveryRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", delivery.OrderID))

	query := `
		INSERT INTO deliveries (id, order_id, status, expected_delivery_date)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		delivery.ID,
		delivery.OrderID,
		delivery.Status,
		delivery.ExpectedDeliveryDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateDelivery
		}

		span.RecordError(err)

		return fmt.Errorf("failed to create delivery: %w", err)
	}

	return nil
}

func (r *deliveryRepo) FindByID(ctx context.Context, id string) (*domain.Delivery, error) {
	return r.findOne(ctx, "id", id)
}

func (r *deliveryRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	return r.findOne(ctx, "order_id", orderID)
}

func (r *deliveryRepo) findOne(ctx context.Context, column, value string) (*domain.Delivery, error) {
	ctx, span := r.tracer.Start(ctx, "DeliveryRepository.findOne")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT id, order_id, status, expected_delivery_date, actual_delivery_date, created_at, updated_at
		FROM deliveries
		WHERE %s = $1
	`, column)

	var delivery domain.Delivery
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&delivery.ID,
		&delivery.OrderID,
		&delivery.Status,
		&delivery.ExpectedDeliveryDate,
		&delivery.ActualDeliveryDate,
		&delivery.CreatedAt,
		&delivery.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeliveryNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("failed to find delivery: %w", err)
	}

	return &delivery, nil
}

func (r *deliveryRepo) List(ctx context.Context, limit, offset int64) ([]domain.Delivery, error) {
	ctx, span := r.tracer.Start(ctx, "DeliveryRepository.List")
	defer span.End()

	query := `
		SELECT id, order_id, status, expected_delivery_date, actual_delivery_date, created_at, updated_at
		FROM deliveries
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		var delivery domain.Delivery
		if err := rows.Scan(
			&delivery.ID,
			&delivery.OrderID,
			&delivery.Status,
			&delivery.ExpectedDeliveryDate,
			&delivery.ActualDeliveryDate,
			&delivery.CreatedAt,
			&delivery.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}

		deliveries = append(deliveries, delivery)
	}

	return deliveries, rows.Err()
}

func (r *deliveryRepo) Update(ctx context.Context, delivery *domain.Delivery) error {
	ctx, span := r.tracer.Start(ctx, "DeliveryRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("delivery_id", delivery.ID),
		attribute.String("status", string(delivery.Status)),
	)

	query := `
		UPDATE deliveries
		SET status = $1, actual_delivery_date = $2, updated_at = NOW()
		WHERE id = $3
	`

	tag, err := r.pool.Exec(ctx, query, delivery.Status, delivery.ActualDeliveryDate, delivery.ID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to update delivery: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrDeliveryNotFound
	}

	return nil
}

func (r *deliveryRepo) SaveConfirmation(ctx context.Context, confirmation *domain.Confirmation) error {
	ctx, span := r.tracer.Start(ctx, "DeliveryRepository.SaveConfirmation")
	defer span.End()

	query := `
		INSERT INTO delivery_confirmations (id, delivery_id, recipient_name, signature_data, notes)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		confirmation.ID,
		confirmation.DeliveryID,
		confirmation.RecipientName,
		confirmation.SignatureData,
		confirmation.Notes,
	)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to save confirmation: %w", err)
	}

	return nil
}
