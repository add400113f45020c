package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusDeclined  PaymentStatus = "DECLINED"
)

// Payment records the outcome of a single payment attempt. order_id is unique
// so a redelivered InventoryReserved can never charge twice.
type Payment struct {
	ID            int64
	OrderID       string
	Status        PaymentStatus
	Reason        string
	TransactionID string
	CreatedAt     time.Time
}
