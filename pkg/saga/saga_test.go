package saga

import (
	"testing"

	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/stretchr/testify/require"
)

func TestApply_HappyPathToCompleted(t *testing.T) {
	state, err := Apply(StateCreated, event.TypeInventoryReserved)
	require.NoError(t, err)
	require.Equal(t, StateReserved, state)

	state, err = Apply(state, event.TypePaymentCompleted)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state)

	require.True(t, Terminal(state))
}

func TestApply_CompensationPath(t *testing.T) {
	state, err := Apply(StateCreated, event.TypeInventoryReserved)
	require.NoError(t, err)

	state, err = Apply(state, event.TypePaymentFailed)
	require.NoError(t, err)
	require.Equal(t, StateFailed, state)
	require.False(t, Terminal(state))

	state, err = Apply(state, event.TypeInventoryReleased)
	require.NoError(t, err)
	require.Equal(t, StateCancelled, state)
	require.True(t, Terminal(state))
}

func TestApply_ReservationFailureCancelsDirectly(t *testing.T) {
	state, err := Apply(StateCreated, event.TypeReservationFailed)
	require.NoError(t, err)
	require.Equal(t, StateCancelled, state)
}

func TestApply_DuplicateEventIsInvalid(t *testing.T) {
	state, err := Apply(StateCreated, event.TypeInventoryReserved)
	require.NoError(t, err)

	_, err = Apply(state, event.TypeInventoryReserved)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_StaleEventIsInvalid(t *testing.T) {
	// InventoryReleased before PaymentFailed is out of order.
	_, err := Apply(StateReserved, event.TypeInventoryReleased)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(StateCancelled, event.TypePaymentFailed)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_UnknownEventType(t *testing.T) {
	_, err := Apply(StateCreated, "SomethingElse")
	require.ErrorIs(t, err, ErrInvalidTransition)
}
