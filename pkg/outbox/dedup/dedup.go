package dedup

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mzholdas/order-saga/pkg/db"
	"github.com/mzholdas/order-saga/pkg/logging"
	"github.com/mzholdas/order-saga/pkg/retry"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// ProcessOnce applies an event effect exactly once per consumer group under
// at-least-once delivery. Each attempt opens its own transaction, claims the
// (event id, consumer group) pair in processed_events and runs fn inside the
// same transaction, so the dedup marker and the effect commit or roll back
// together. A redelivered event hits the unique constraint and is skipped
// without invoking fn.
//
// The retry wraps the whole begin, claim, effect, commit cycle: once a
// statement fails, Postgres aborts the transaction and every later statement
// in it returns "current transaction is aborted", so a failed attempt can
// only be redone on a fresh transaction.
func ProcessOnce(
	ctx context.Context,
	pool db.Pool,
	logger *zap.Logger,
	consumerGroup string,
	eventID int64,
	opts retry.Options,
	fn func(tx pgx.Tx) error,
) error {
	err := retry.Do(ctx, func() error {
		return processOnce(ctx, pool, logger, consumerGroup, eventID, fn)
	}, opts)
	if err != nil {
		logging.Error(ctx, logger, "Event handler failed after retries",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
	}

	return err
}

func processOnce(
	ctx context.Context,
	pool db.Pool,
	logger *zap.Logger,
	consumerGroup string,
	eventID int64,
	fn func(tx pgx.Tx) error,
) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logging.Error(cleanupCtx, logger, "Error rolling back dedup transaction", zap.Error(err))
		}
	}()

	query := `
		INSERT INTO processed_events (event_id, consumer_group)
		VALUES ($1, $2)
	`

	if _, err := tx.Exec(ctx, query, eventID, consumerGroup); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			logging.Info(ctx, logger, "Event already processed, skipping",
				zap.Int64("event_id", eventID),
				zap.String("consumer_group", consumerGroup),
			)

			return nil
		}

		return err
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
