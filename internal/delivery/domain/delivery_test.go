package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeliveryLifecycle(t *testing.T) {
	d, err := NewDelivery("d-1", "order-1", nil)
	require.NoError(t, err)
	require.Equal(t, DeliveryStatusPending, d.Status)

	require.NoError(t, d.Start())
	require.Equal(t, DeliveryStatusInTransit, d.Status)

	handedOver := time.Now()
	require.NoError(t, d.Confirm(handedOver))
	require.Equal(t, DeliveryStatusDelivered, d.Status)
	require.Equal(t, handedOver, *d.ActualDeliveryDate)
	require.True(t, d.Terminal())
}

func TestDelivery_RequiresOrderID(t *testing.T) {
	_, err := NewDelivery("d-1", "", nil)
	require.ErrorIs(t, err, ErrMissingOrderID)
}

func TestDelivery_StartOnlyFromPending(t *testing.T) {
	d, _ := NewDelivery("d-1", "order-1", nil)
	require.NoError(t, d.Start())

	require.ErrorIs(t, d.Start(), ErrNotPending)
}

func TestDelivery_ConfirmOnlyFromInTransit(t *testing.T) {
	d, _ := NewDelivery("d-1", "order-1", nil)

	require.ErrorIs(t, d.Confirm(time.Now()), ErrNotInTransit)
}

func TestDelivery_CancelRules(t *testing.T) {
	pending, _ := NewDelivery("d-1", "order-1", nil)
	require.NoError(t, pending.Cancel())
	require.Equal(t, DeliveryStatusCancelled, pending.Status)

	// Cancelling twice stays put.
	require.NoError(t, pending.Cancel())
	require.Equal(t, DeliveryStatusCancelled, pending.Status)

	inTransit, _ := NewDelivery("d-2", "order-2", nil)
	require.NoError(t, inTransit.Start())
	require.NoError(t, inTransit.Cancel())

	delivered, _ := NewDelivery("d-3", "order-3", nil)
	require.NoError(t, delivered.Start())
	require.NoError(t, delivered.Confirm(time.Now()))
	require.ErrorIs(t, delivered.Cancel(), ErrAlreadyDelivered)
}
