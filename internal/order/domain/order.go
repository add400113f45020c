package domain

import "time"

type OrderStatus string

// The write model only sees the endpoints of the saga: orders are created,
// then either cancelled by a compensation event or completed by a successful
// payment. The intermediate states live on the event log and in the read
// model.
const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

type Order struct {
	ID       string      `db:"id"`
	Product  string      `db:"product"`
	Quantity int32       `db:"quantity"`
	Status   OrderStatus `db:"status"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusCompleted
}
