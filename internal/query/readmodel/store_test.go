package readmodel

import (
	"context"
	"testing"

	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/saga"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func envelope(t *testing.T, eventType, orderID string, payload any, reason string) *event.Envelope {
	t.Helper()

	env, err := event.New(eventType, orderID, payload)
	require.NoError(t, err)
	env.Reason = reason

	return env
}

func TestStore_CompensationPathEndsCancelled(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	store.Apply(ctx, envelope(t, event.TypeOrderCreated, "order-1", event.OrderPayload{Product: "Wheat", Quantity: 100}, ""))

	view, ok := store.Get("order-1")
	require.True(t, ok)
	require.Equal(t, saga.StateCreated, view.Status)
	require.Equal(t, "Wheat", view.Product)
	require.Equal(t, int32(100), view.Quantity)

	store.Apply(ctx, envelope(t, event.TypeInventoryReserved, "order-1", nil, ""))
	view, _ = store.Get("order-1")
	require.Equal(t, saga.StateReserved, view.Status)

	store.Apply(ctx, envelope(t, event.TypePaymentFailed, "order-1", nil, "Insufficient funds"))
	view, _ = store.Get("order-1")
	require.Equal(t, saga.StateFailed, view.Status)
	require.Equal(t, "Insufficient funds", view.Reason)

	store.Apply(ctx, envelope(t, event.TypeInventoryReleased, "order-1", nil, ""))
	view, _ = store.Get("order-1")
	require.Equal(t, saga.StateCancelled, view.Status)
}

func TestStore_HappyPathEndsCompleted(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	store.Apply(ctx, envelope(t, event.TypeOrderCreated, "order-2", event.OrderPayload{Product: "Rye", Quantity: 5}, ""))
	store.Apply(ctx, envelope(t, event.TypeInventoryReserved, "order-2", nil, ""))
	store.Apply(ctx, envelope(t, event.TypePaymentCompleted, "order-2", nil, ""))

	view, ok := store.Get("order-2")
	require.True(t, ok)
	require.Equal(t, saga.StateCompleted, view.Status)
}

func TestStore_DuplicateDeliveryDoesNotMoveTheView(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	store.Apply(ctx, envelope(t, event.TypeOrderCreated, "order-3", nil, ""))
	store.Apply(ctx, envelope(t, event.TypeInventoryReserved, "order-3", nil, ""))

	// The relay delivers at least once; the second copy is a no-op.
	store.Apply(ctx, envelope(t, event.TypeInventoryReserved, "order-3", nil, ""))

	view, _ := store.Get("order-3")
	require.Equal(t, saga.StateReserved, view.Status)
}

func TestStore_StaleEventDoesNotRegress(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	store.Apply(ctx, envelope(t, event.TypeOrderCreated, "order-4", nil, ""))
	store.Apply(ctx, envelope(t, event.TypeInventoryReserved, "order-4", nil, ""))
	store.Apply(ctx, envelope(t, event.TypePaymentCompleted, "order-4", nil, ""))

	store.Apply(ctx, envelope(t, event.TypePaymentFailed, "order-4", nil, "late"))

	view, _ := store.Get("order-4")
	require.Equal(t, saga.StateCompleted, view.Status)
	require.Empty(t, view.Reason)
}

func TestStore_UnknownOrderIgnored(t *testing.T) {
	store := NewStore(zap.NewNop())

	store.Apply(context.Background(), envelope(t, event.TypeInventoryReserved, "ghost", nil, ""))

	_, ok := store.Get("ghost")
	require.False(t, ok)
	require.Empty(t, store.GetAll())
}

func TestStore_GetAllSortedByOrderID(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	store.Apply(ctx, envelope(t, event.TypeOrderCreated, "b", nil, ""))
	store.Apply(ctx, envelope(t, event.TypeOrderCreated, "a", nil, ""))
	store.Apply(ctx, envelope(t, event.TypeOrderCreated, "c", nil, ""))

	views := store.GetAll()
	require.Len(t, views, 3)
	require.Equal(t, "a", views[0].OrderID)
	require.Equal(t, "b", views[1].OrderID)
	require.Equal(t, "c", views[2].OrderID)
}
