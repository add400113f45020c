package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/internal/payment/domain"
	"github.com/mzholdas/order-saga/internal/payment/repository"
	"github.com/mzholdas/order-saga/pkg/db/dbtest"
	"github.com/mzholdas/order-saga/pkg/event"
	outboxDomain "github.com/mzholdas/order-saga/pkg/outbox/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePaymentRepo struct {
	saveErr error
	saved   []*domain.Payment
}

func (r *fakePaymentRepo) SavePayment(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	if r.saveErr != nil {
		return r.saveErr
	}

	r.saved = append(r.saved, payment)
	return nil
}

func (r *fakePaymentRepo) FindByOrderID(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Payment, error) {
	return nil, nil
}

type fakeOutboxRepo struct {
	saved []*outboxDomain.OutboxEvent
}

func (r *fakeOutboxRepo) SaveEvent(ctx context.Context, tx pgx.Tx, event *outboxDomain.OutboxEvent) error {
	r.saved = append(r.saved, event)
	return nil
}

func (r *fakeOutboxRepo) UnpublishedBatch(ctx context.Context, tx pgx.Tx, batchSize int, maxAttempts int32) ([]*outboxDomain.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	return nil
}

func (r *fakeOutboxRepo) CountDeadLettered(ctx context.Context, tx pgx.Tx, maxAttempts int32) (int64, error) {
	return 0, nil
}

type approvingProcessor struct{}

func (approvingProcessor) Charge(ctx context.Context, orderID string, payload event.OrderPayload) (ChargeResult, error) {
	return ChargeResult{TransactionID: "tx-1", Approved: true}, nil
}

type brokenProcessor struct{}

func (brokenProcessor) Charge(ctx context.Context, orderID string, payload event.OrderPayload) (ChargeResult, error) {
	return ChargeResult{}, errors.New("connection refused")
}

func reservedEnvelope(t *testing.T, orderID string) *event.Envelope {
	t.Helper()

	env, err := event.New(event.TypeInventoryReserved, orderID, event.OrderPayload{Product: "Wheat", Quantity: 100})
	require.NoError(t, err)

	return env
}

func TestHandleInventoryReserved_DeclineRecordsPaymentAndEmitsFailure(t *testing.T) {
	payments := &fakePaymentRepo{}
	outbox := &fakeOutboxRepo{}

	svc := NewPaymentService(zap.NewNop(), payments, outbox, DecliningProcessor{})

	err := svc.HandleInventoryReserved(context.Background(), &dbtest.FakeTx{}, reservedEnvelope(t, "order-1"))
	require.NoError(t, err)

	require.Len(t, payments.saved, 1)
	require.Equal(t, domain.PaymentStatusDeclined, payments.saved[0].Status)
	require.Equal(t, "Insufficient funds", payments.saved[0].Reason)
	require.NotEmpty(t, payments.saved[0].TransactionID)

	require.Len(t, outbox.saved, 1)
	require.Equal(t, event.TypePaymentFailed, outbox.saved[0].EventType)
	require.Equal(t, event.TopicPaymentFailed, outbox.saved[0].Topic)

	saved, err := event.Parse(outbox.saved[0].Payload)
	require.NoError(t, err)
	require.Equal(t, "Insufficient funds", saved.Reason)

	// The order payload is forwarded so inventory can release the stock.
	var payload event.OrderPayload
	require.NoError(t, json.Unmarshal(saved.Payload, &payload))
	require.Equal(t, "Wheat", payload.Product)
	require.Equal(t, int32(100), payload.Quantity)
}

func TestHandleInventoryReserved_ApprovalEmitsCompleted(t *testing.T) {
	payments := &fakePaymentRepo{}
	outbox := &fakeOutboxRepo{}

	svc := NewPaymentService(zap.NewNop(), payments, outbox, approvingProcessor{})

	err := svc.HandleInventoryReserved(context.Background(), &dbtest.FakeTx{}, reservedEnvelope(t, "order-2"))
	require.NoError(t, err)

	require.Len(t, payments.saved, 1)
	require.Equal(t, domain.PaymentStatusCompleted, payments.saved[0].Status)
	require.Equal(t, "tx-1", payments.saved[0].TransactionID)

	require.Len(t, outbox.saved, 1)
	require.Equal(t, event.TypePaymentCompleted, outbox.saved[0].EventType)
}

func TestHandleInventoryReserved_ProcessorErrorFailsTheOrder(t *testing.T) {
	payments := &fakePaymentRepo{}
	outbox := &fakeOutboxRepo{}

	svc := NewPaymentService(zap.NewNop(), payments, outbox, brokenProcessor{})

	err := svc.HandleInventoryReserved(context.Background(), &dbtest.FakeTx{}, reservedEnvelope(t, "order-3"))
	require.NoError(t, err)

	require.Len(t, payments.saved, 1)
	require.Equal(t, domain.PaymentStatusDeclined, payments.saved[0].Status)
	require.Equal(t, reasonProcessorUnavailable, payments.saved[0].Reason)

	require.Len(t, outbox.saved, 1)
	require.Equal(t, event.TypePaymentFailed, outbox.saved[0].EventType)
}

func TestHandleInventoryReserved_DuplicatePaymentIsSkipped(t *testing.T) {
	payments := &fakePaymentRepo{saveErr: repository.ErrDuplicatePayment}
	outbox := &fakeOutboxRepo{}

	svc := NewPaymentService(zap.NewNop(), payments, outbox, DecliningProcessor{})

	err := svc.HandleInventoryReserved(context.Background(), &dbtest.FakeTx{}, reservedEnvelope(t, "order-4"))
	require.NoError(t, err)

	require.Empty(t, outbox.saved)
}
