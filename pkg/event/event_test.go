package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	env, err := New(TypeOrderCreated, "order-1", OrderPayload{Product: "Wheat", Quantity: 100})
	require.NoError(t, err)
	require.False(t, env.Timestamp.IsZero())

	raw := []byte(`{"eventId":7,"eventType":"OrderCreated","orderId":"order-1","payload":{"product":"Wheat","quantity":100},"timestamp":"2025-01-01T00:00:00Z"}`)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, int64(7), parsed.EventID)
	require.Equal(t, TypeOrderCreated, parsed.EventType)
	require.Equal(t, "order-1", parsed.OrderID)
}

func TestParse_RejectsMissingEventType(t *testing.T) {
	_, err := Parse([]byte(`{"orderId":"order-1"}`))
	require.Error(t, err)

	_, err = Parse([]byte(`not json`))
	require.Error(t, err)
}

func TestTopicFor(t *testing.T) {
	topic, err := TopicFor(TypePaymentFailed)
	require.NoError(t, err)
	require.Equal(t, TopicPaymentFailed, topic)

	_, err = TopicFor("AuditLogged")
	require.Error(t, err)
}
