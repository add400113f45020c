package domain

import (
	"encoding/json"
	"time"
)

// OutboxEvent is one row of the outbox table. A row with PublishedAt == nil
// has not been delivered to the log yet; the relay flips it after a
// successful publish. Rows whose Attempts reach the relay's cap are dead
// lettered: they stay unpublished but are no longer selected.
type OutboxEvent struct {
	ID          int64           `db:"id"`
	AggregateID string          `db:"aggregate_id"`
	EventType   string          `db:"event_type"`
	Payload     json.RawMessage `db:"payload"`
	Topic       string          `db:"topic"`
	CreatedAt   time.Time       `db:"created_at"`
	PublishedAt *time.Time      `db:"published_at"`
	Attempts    int32           `db:"attempts"`
	LastError   *string         `db:"last_error"`
}
