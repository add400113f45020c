package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/pkg/db"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/logging"
	"github.com/mzholdas/order-saga/pkg/outbox/domain"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	UnpublishedBatch(ctx context.Context, tx pgx.Tx, batchSize int, maxAttempts int32) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error
	CountDeadLettered(ctx context.Context, tx pgx.Tx, maxAttempts int32) (int64, error)
}

type Producer interface {
	ProduceMessage(ctx context.Context, topic string, message interface{}) error
}

// Metrics counts relay outcomes. Register it on the service registry.
type Metrics struct {
	Published    prometheus.Counter
	Failed       prometheus.Counter
	DeadLettered prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events successfully published to the event log.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_publish_failures_total",
			Help: "Failed publish attempts of outbox events.",
		}),
		DeadLettered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_events_dead_lettered",
			Help: "Unpublished outbox events that exhausted their attempts.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Published, m.Failed, m.DeadLettered)
	}

	return m
}

// Relay polls the outbox table and republishes unsent rows to the event log.
// A row is marked published only after the broker accepted it, so a crash in
// between republishes on the next tick (at-least-once). Ticks never overlap:
// the next one fires only after the previous batch returned.
type Relay struct {
	pool        db.Pool
	repo        OutboxRepository
	producer    Producer
	logger      *zap.Logger
	metrics     *Metrics
	batchSize   int
	interval    time.Duration
	maxAttempts int32
	tracer      trace.Tracer
}

type RelayOption func(*Relay)

func WithInterval(interval time.Duration) RelayOption {
	return func(r *Relay) { r.interval = interval }
}

func WithBatchSize(size int) RelayOption {
	return func(r *Relay) { r.batchSize = size }
}

func WithMaxAttempts(attempts int32) RelayOption {
	return func(r *Relay) { r.maxAttempts = attempts }
}

func WithMetrics(m *Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func NewRelay(pool db.Pool, repo OutboxRepository, producer Producer, logger *zap.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		pool:        pool,
		repo:        repo,
		producer:    producer,
		logger:      logger,
		batchSize:   50,
		interval:    3 * time.Second,
		maxAttempts: 10,
		tracer:      otel.Tracer("outbox/relay"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Relay) Start(ctx context.Context) {
	logging.Info(ctx, r.logger, "Starting outbox relay",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info(ctx, r.logger, "Outbox relay stopping")
			return
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				logging.Error(ctx, r.logger, "Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch runs one relay tick: select unsent rows, publish each, mark
// the outcome, commit. Publish failures only bump the row's attempts; the
// row is retried next tick until the attempts cap dead-letters it.
func (r *Relay) ProcessBatch(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "Relay.ProcessBatch")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logging.Error(cleanupCtx, r.logger, "Outbox relay failed to rollback transaction", zap.Error(err))
		}
	}()

	events, err := r.repo.UnpublishedBatch(ctx, tx, r.batchSize, r.maxAttempts)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return tx.Commit(ctx)
	}

	logging.Debug(ctx, r.logger, "Relaying outbox events", zap.Int("count", len(events)))

	for _, evt := range events {
		if err := r.publishOne(ctx, tx, evt); err != nil {
			return err
		}
	}

	if r.metrics != nil {
		if dead, err := r.repo.CountDeadLettered(ctx, tx, r.maxAttempts); err == nil {
			r.metrics.DeadLettered.Set(float64(dead))
		}
	}

	return tx.Commit(ctx)
}

func (r *Relay) publishOne(ctx context.Context, tx pgx.Tx, evt *domain.OutboxEvent) error {
	env, err := event.Parse(evt.Payload)
	if err != nil {
		logging.Error(ctx, r.logger, "Outbox row holds an unparseable envelope",
			zap.Int64("id", evt.ID),
			zap.Error(err),
		)

		return r.repo.MarkFailed(ctx, tx, evt.ID, err.Error())
	}

	// Consumers deduplicate on the outbox row id.
	env.EventID = evt.ID

	message, err := json.Marshal(env)
	if err != nil {
		return r.repo.MarkFailed(ctx, tx, evt.ID, err.Error())
	}

	if err := r.producer.ProduceMessage(ctx, evt.Topic, json.RawMessage(message)); err != nil {
		logging.Error(ctx, r.logger, "Outbox relay publish failed",
			zap.Int64("id", evt.ID),
			zap.String("topic", evt.Topic),
			zap.Error(err),
		)

		if r.metrics != nil {
			r.metrics.Failed.Inc()
		}

		if dbErr := r.repo.MarkFailed(ctx, tx, evt.ID, err.Error()); dbErr != nil {
			return dbErr
		}

		return nil
	}

	if err := r.repo.MarkPublished(ctx, tx, evt.ID); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.Published.Inc()
	}

	logging.Debug(ctx, r.logger, "Outbox event published",
		zap.Int64("id", evt.ID),
		zap.String("topic", evt.Topic),
	)

	return nil
}
