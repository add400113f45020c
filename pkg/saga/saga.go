package saga

import (
	"errors"
	"fmt"

	"github.com/mzholdas/order-saga/pkg/event"
)

// State is the saga position of an order. The string values double as the
// denormalized status exposed by the read model.
type State string

const (
	StateCreated   State = "CREATED"
	StateReserved  State = "INVENTORY_RESERVED"
	StateFailed    State = "PAYMENT_FAILED"
	StateCancelled State = "CANCELLED"
	StateCompleted State = "COMPLETED"
)

var ErrInvalidTransition = errors.New("invalid saga transition")

// transitions is the explicit table of the choreography: which event type
// moves an order from which state to which. Anything not listed is invalid,
// which also makes duplicate deliveries of the same event a no-op for
// whoever consults the table.
var transitions = map[string]map[State]State{
	event.TypeInventoryReserved: {
		StateCreated: StateReserved,
	},
	event.TypeReservationFailed: {
		StateCreated: StateCancelled,
	},
	event.TypePaymentFailed: {
		StateReserved: StateFailed,
	},
	event.TypePaymentCompleted: {
		StateReserved: StateCompleted,
	},
	event.TypeInventoryReleased: {
		StateFailed: StateCancelled,
	},
}

// Apply returns the state an order in current moves to when eventType is
// observed. ErrInvalidTransition is returned for unknown event types, stale
// events and duplicates.
func Apply(current State, eventType string) (State, error) {
	byState, ok := transitions[eventType]
	if !ok {
		return current, fmt.Errorf("%w: unknown event type %q", ErrInvalidTransition, eventType)
	}

	next, ok := byState[current]
	if !ok {
		return current, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, eventType, current)
	}

	return next, nil
}

// Terminal reports whether no event can move the order further.
func Terminal(s State) bool {
	for _, byState := range transitions {
		if _, ok := byState[s]; ok {
			return false
		}
	}

	return true
}
