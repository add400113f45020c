package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types as they appear on the wire.
const (
	TypeOrderCreated      = "OrderCreated"
	TypeInventoryReserved = "InventoryReserved"
	TypeReservationFailed = "InventoryReservationFailed"
	TypePaymentFailed     = "PaymentFailed"
	TypePaymentCompleted  = "PaymentCompleted"
	TypeInventoryReleased = "InventoryReleased"
)

// Topic names, one per event-type namespace.
const (
	TopicOrderCreated      = "order.created"
	TopicInventoryReserved = "inventory.reserved"
	TopicReservationFailed = "inventory.reservation_failed"
	TopicPaymentFailed     = "payment.failed"
	TopicPaymentCompleted  = "payment.completed"
	TopicInventoryReleased = "inventory.released"
)

var topics = map[string]string{
	TypeOrderCreated:      TopicOrderCreated,
	TypeInventoryReserved: TopicInventoryReserved,
	TypeReservationFailed: TopicReservationFailed,
	TypePaymentFailed:     TopicPaymentFailed,
	TypePaymentCompleted:  TopicPaymentCompleted,
	TypeInventoryReleased: TopicInventoryReleased,
}

// TopicFor maps an event type to the topic it is published on.
func TopicFor(eventType string) (string, error) {
	topic, ok := topics[eventType]
	if !ok {
		return "", fmt.Errorf("no topic registered for event type %q", eventType)
	}

	return topic, nil
}

// Envelope is the JSON shape shared by every event on the log. EventID is the
// outbox row id, filled in by the relay at publish time; consumers key their
// deduplication on it.
type Envelope struct {
	EventID   int64           `json:"eventId,omitempty"`
	EventType string          `json:"eventType"`
	OrderID   string          `json:"orderId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// New builds an envelope with the payload marshalled in place. A nil payload
// is left out of the JSON entirely.
func New(eventType, orderID string, payload any) (*Envelope, error) {
	env := &Envelope{
		EventType: eventType,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		env.Payload = raw
	}

	return env, nil
}

// Parse decodes an envelope from a raw Kafka message value.
func Parse(value []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	if env.EventType == "" {
		return nil, fmt.Errorf("event envelope missing eventType")
	}

	return &env, nil
}

// OrderPayload is the business payload carried by OrderCreated.
type OrderPayload struct {
	Product  string `json:"product"`
	Quantity int32  `json:"quantity"`
}
