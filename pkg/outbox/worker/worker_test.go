package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/pkg/db/dbtest"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/outbox/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryRepo struct {
	rows []*domain.OutboxEvent

	markPublishedErr error
	savedFailures    map[int64]string
}

func (r *memoryRepo) SaveEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error {
	r.rows = append(r.rows, event)
	return nil
}

func (r *memoryRepo) UnpublishedBatch(ctx context.Context, tx pgx.Tx, batchSize int, maxAttempts int32) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	for _, row := range r.rows {
		if row.PublishedAt == nil && row.Attempts < maxAttempts {
			out = append(out, row)
		}
		if len(out) == batchSize {
			break
		}
	}

	return out, nil
}

func (r *memoryRepo) MarkPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	if r.markPublishedErr != nil {
		return r.markPublishedErr
	}

	for _, row := range r.rows {
		if row.ID == eventID {
			now := row.CreatedAt
			row.PublishedAt = &now
		}
	}

	return nil
}

func (r *memoryRepo) MarkFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	if r.savedFailures == nil {
		r.savedFailures = make(map[int64]string)
	}
	r.savedFailures[eventID] = errMsg

	for _, row := range r.rows {
		if row.ID == eventID {
			row.Attempts++
		}
	}

	return nil
}

func (r *memoryRepo) CountDeadLettered(ctx context.Context, tx pgx.Tx, maxAttempts int32) (int64, error) {
	var count int64
	for _, row := range r.rows {
		if row.PublishedAt == nil && row.Attempts >= maxAttempts {
			count++
		}
	}

	return count, nil
}

type recordingProducer struct {
	published []*event.Envelope
	err       error
}

func (p *recordingProducer) ProduceMessage(ctx context.Context, topic string, message interface{}) error {
	if p.err != nil {
		return p.err
	}

	raw, _ := json.Marshal(message)
	env, err := event.Parse(raw)
	if err != nil {
		return err
	}

	p.published = append(p.published, env)
	return nil
}

func outboxRow(id int64) *domain.OutboxEvent {
	env, _ := event.New(event.TypeOrderCreated, "order-1", event.OrderPayload{Product: "Wheat", Quantity: 100})
	payload, _ := json.Marshal(env)

	return &domain.OutboxEvent{
		ID:          id,
		AggregateID: "order-1",
		EventType:   event.TypeOrderCreated,
		Payload:     payload,
		Topic:       event.TopicOrderCreated,
	}
}

func TestRelay_PublishesAndMarks(t *testing.T) {
	repo := &memoryRepo{rows: []*domain.OutboxEvent{outboxRow(1)}}
	producer := &recordingProducer{}
	pool := &dbtest.FakePool{}

	relay := NewRelay(pool, repo, producer, zap.NewNop())

	require.NoError(t, relay.ProcessBatch(context.Background()))

	require.Len(t, producer.published, 1)
	require.Equal(t, int64(1), producer.published[0].EventID)
	require.Equal(t, event.TypeOrderCreated, producer.published[0].EventType)
	require.NotNil(t, repo.rows[0].PublishedAt)

	// Nothing left on the next tick.
	require.NoError(t, relay.ProcessBatch(context.Background()))
	require.Len(t, producer.published, 1)
}

func TestRelay_RepublishesAfterCrashBetweenPublishAndMark(t *testing.T) {
	repo := &memoryRepo{rows: []*domain.OutboxEvent{outboxRow(7)}}
	producer := &recordingProducer{}
	pool := &dbtest.FakePool{}

	relay := NewRelay(pool, repo, producer, zap.NewNop())

	// Publish succeeds but the sent-flag update is lost.
	repo.markPublishedErr = errors.New("connection reset")
	require.Error(t, relay.ProcessBatch(context.Background()))
	require.Len(t, producer.published, 1)
	require.Nil(t, repo.rows[0].PublishedAt)

	// Next tick republishes the same row: duplicate delivery downstream.
	repo.markPublishedErr = nil
	require.NoError(t, relay.ProcessBatch(context.Background()))

	require.Len(t, producer.published, 2)
	require.Equal(t, producer.published[0].EventID, producer.published[1].EventID)
	require.NotNil(t, repo.rows[0].PublishedAt)
}

func TestRelay_PublishFailureBumpsAttempts(t *testing.T) {
	repo := &memoryRepo{rows: []*domain.OutboxEvent{outboxRow(3)}}
	producer := &recordingProducer{err: errors.New("broker unavailable")}
	pool := &dbtest.FakePool{}

	relay := NewRelay(pool, repo, producer, zap.NewNop(), WithMaxAttempts(2))

	require.NoError(t, relay.ProcessBatch(context.Background()))
	require.Equal(t, int32(1), repo.rows[0].Attempts)
	require.Contains(t, repo.savedFailures[3], "broker unavailable")

	require.NoError(t, relay.ProcessBatch(context.Background()))
	require.Equal(t, int32(2), repo.rows[0].Attempts)

	// Attempts cap reached: the row is dead-lettered, not selected again.
	require.NoError(t, relay.ProcessBatch(context.Background()))
	require.Equal(t, int32(2), repo.rows[0].Attempts)

	dead, err := repo.CountDeadLettered(context.Background(), nil, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), dead)
}
