package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/mzholdas/order-saga/pkg/event"
)

type ChargeResult struct {
	TransactionID string
	Approved      bool
	Reason        string
}

// Processor is the payment gateway boundary. Implementations return an error
// only when the gateway itself is unreachable; a decline is a regular result.
type Processor interface {
	Charge(ctx context.Context, orderID string, payload event.OrderPayload) (ChargeResult, error)
}

// DecliningProcessor rejects every charge. It stands in for a real gateway in
// environments without one and keeps the compensation path exercised.
type DecliningProcessor struct{}

func (DecliningProcessor) Charge(ctx context.Context, orderID string, payload event.OrderPayload) (ChargeResult, error) {
	return ChargeResult{
		TransactionID: uuid.New().String(),
		Approved:      false,
		Reason:        "Insufficient funds",
	}, nil
}
