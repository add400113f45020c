package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5"
	"github.com/mzholdas/order-saga/internal/order/service"
	"github.com/mzholdas/order-saga/pkg/db/dbtest"
	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrderService struct {
	cancelled []string
	completed []string
}

func (s *fakeOrderService) CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (string, error) {
	return "", nil
}

func (s *fakeOrderService) CancelOrder(ctx context.Context, tx pgx.Tx, orderID string) error {
	s.cancelled = append(s.cancelled, orderID)
	return nil
}

func (s *fakeOrderService) CompleteOrder(ctx context.Context, tx pgx.Tx, orderID string) error {
	s.completed = append(s.completed, orderID)
	return nil
}

func TestProcessMessage_RejectsEnvelopeWithoutEventID(t *testing.T) {
	pool := &dbtest.FakePool{}
	svc := &fakeOrderService{}
	c := NewConsumer(pool, svc, zap.NewNop())

	msg := &sarama.ConsumerMessage{
		Topic: event.TopicInventoryReleased,
		Value: []byte(`{"eventType":"InventoryReleased","orderId":"order-1"}`),
	}

	err := c.processMessage(context.Background(), msg)
	require.Error(t, err)

	// No dedup claim must be attempted for an unkeyable message.
	require.Empty(t, pool.Txs)
	require.Empty(t, svc.cancelled)
}

func TestProcessMessage_AppliesKeyedEnvelope(t *testing.T) {
	pool := &dbtest.FakePool{}
	svc := &fakeOrderService{}
	c := NewConsumer(pool, svc, zap.NewNop())

	msg := &sarama.ConsumerMessage{
		Topic: event.TopicInventoryReleased,
		Value: []byte(`{"eventId":9,"eventType":"InventoryReleased","orderId":"order-1"}`),
	}

	err := c.processMessage(context.Background(), msg)
	require.NoError(t, err)

	require.Equal(t, []string{"order-1"}, svc.cancelled)
	require.Len(t, pool.Txs, 1)
	require.True(t, pool.Txs[0].Committed)
}
