package domain

import (
	"errors"
	"time"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusCancelled DeliveryStatus = "CANCELLED"
)

var (
	ErrMissingOrderID   = errors.New("delivery requires an order id")
	ErrNotPending       = errors.New("delivery can only start from PENDING")
	ErrNotInTransit     = errors.New("delivery can only be confirmed from IN_TRANSIT")
	ErrAlreadyDelivered = errors.New("delivered delivery cannot be cancelled")
)

type Delivery struct {
	ID                   string
	OrderID              string
	Status               DeliveryStatus
	ExpectedDeliveryDate *time.Time
	ActualDeliveryDate   *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Confirmation struct {
	ID            string
	DeliveryID    string
	RecipientName string
	SignatureData string
	Notes         string
	ConfirmedAt   time.Time
}

func NewDelivery(id, orderID string, expected *time.Time) (*Delivery, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	return &Delivery{
		ID:                   id,
		OrderID:              orderID,
		Status:               DeliveryStatusPending,
		ExpectedDeliveryDate: expected,
	}, nil
}

// Start moves the delivery onto the road.
func (d *Delivery) Start() error {
	if d.Status != DeliveryStatusPending {
		return ErrNotPending
	}

	d.Status = DeliveryStatusInTransit
	return nil
}

// Confirm marks the delivery handed over at the given time.
func (d *Delivery) Confirm(at time.Time) error {
	if d.Status != DeliveryStatusInTransit {
		return ErrNotInTransit
	}

	d.Status = DeliveryStatusDelivered
	d.ActualDeliveryDate = &at
	return nil
}

// Cancel is allowed from any non-terminal state. Cancelling an already
// cancelled delivery is a no-op.
func (d *Delivery) Cancel() error {
	if d.Status == DeliveryStatusDelivered {
		return ErrAlreadyDelivered
	}

	d.Status = DeliveryStatusCancelled
	return nil
}

func (d *Delivery) Terminal() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusCancelled
}
