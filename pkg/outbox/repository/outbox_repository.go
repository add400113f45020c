package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/pkg/outbox/domain"
	"github.com/mzholdas/order-saga/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type outboxRepo struct {
	tracer trace.Tracer
	logger *zap.Logger
}

func NewOutboxRepository(logger *zap.Logger) worker.OutboxRepository {
	return &outboxRepo{
		tracer: otel.Tracer("outbox/repository"),
		logger: logger,
	}
}

func (r *outboxRepo) SaveEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.SaveEvent")
	defer span.End()

	span.SetAttributes(
		attribute.String("aggregate_id", event.AggregateID),
		attribute.String("event_type", event.EventType),
	)

	query := `
		INSERT INTO outbox_events (aggregate_id, event_type, payload, topic)
		VALUES ($1, $2, $3, $4)
	`

	_, err := tx.Exec(
		ctx,
		query,
		event.AggregateID,
		event.EventType,
		event.Payload,
		event.Topic,
	)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *outboxRepo) UnpublishedBatch(ctx context.Context, tx pgx.Tx, batchSize int, maxAttempts int32) ([]*domain.OutboxEvent, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.UnpublishedBatch")
	defer span.End()

	span.SetAttributes(
		attribute.Int("batch_size", batchSize),
	)

	query := `
		SELECT id, aggregate_id, event_type, payload, topic, created_at, attempts
		FROM outbox_events
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY created_at ASC, id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, batchSize, maxAttempts)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.AggregateID,
			&e.EventType,
			&e.Payload,
			&e.Topic,
			&e.CreatedAt,
			&e.Attempts,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning event: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows error: %w", err)
	}

	span.SetAttributes(
		attribute.Int("result_count", len(events)),
	)

	return events, nil
}

func (r *outboxRepo) MarkPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkPublished")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
	)

	query := `
		UPDATE outbox_events
		SET published_at = NOW(), last_error = NULL
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query, eventID)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *outboxRepo) MarkFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkFailed")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("outbox.error_message", errMsg),
	)

	query := `
		UPDATE outbox_events
		SET last_error = $1,
			attempts = attempts + 1
		WHERE id = $2
	`

	_, err := tx.Exec(ctx, query, errMsg, eventID)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *outboxRepo) CountDeadLettered(ctx context.Context, tx pgx.Tx, maxAttempts int32) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.CountDeadLettered")
	defer span.End()

	query := `
		SELECT COUNT(*)
		FROM outbox_events
		WHERE published_at IS NULL AND attempts >= $1
	`

	var count int64
	if err := tx.QueryRow(ctx, query, maxAttempts).Scan(&count); err != nil {
		span.RecordError(err)

		return 0, fmt.Errorf("failed to count dead-lettered events: %w", err)
	}

	return count, nil
}
