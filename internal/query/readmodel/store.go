package readmodel

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/mzholdas/order-saga/pkg/event"
	"github.com/mzholdas/order-saga/pkg/logging"
	"github.com/mzholdas/order-saga/pkg/saga"
	"go.uber.org/zap"
)

// OrderView is the denormalized order a reader sees. Status follows the saga
// state machine, not the write-side order table.
type OrderView struct {
	OrderID  string     `json:"orderId"`
	Status   saga.State `json:"status"`
	Product  string     `json:"product,omitempty"`
	Quantity int32      `json:"quantity,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// Store folds saga events into order views. Writes come from a single
// projector goroutine; the lock is for concurrent readers.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*OrderView
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		orders: make(map[string]*OrderView),
		logger: logger,
	}
}

// Apply advances the view for the envelope's order. Events for unknown orders
// other than OrderCreated, duplicates, and out-of-order arrivals are dropped.
func (s *Store) Apply(ctx context.Context, env *event.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if env.EventType == event.TypeOrderCreated {
		if _, ok := s.orders[env.OrderID]; ok {
			logging.Warn(
				ctx,
				s.logger,
				"Duplicate OrderCreated ignored",
				zap.String("order_id", env.OrderID),
			)

			return
		}

		view := &OrderView{
			OrderID: env.OrderID,
			Status:  saga.StateCreated,
		}

		var payload event.OrderPayload
		if len(env.Payload) > 0 && json.Unmarshal(env.Payload, &payload) == nil {
			view.Product = payload.Product
			view.Quantity = payload.Quantity
		}

		s.orders[env.OrderID] = view
		return
	}

	view, ok := s.orders[env.OrderID]
	if !ok {
		logging.Warn(
			ctx,
			s.logger,
			"Event for unknown order ignored",
			zap.String("order_id", env.OrderID),
			zap.String("event_type", env.EventType),
		)

		return
	}

	next, err := saga.Apply(view.Status, env.EventType)
	if err != nil {
		// Duplicates and stale arrivals land here; the view stays put.
		logging.Warn(
			ctx,
			s.logger,
			"Event does not advance order, ignored",
			zap.String("order_id", env.OrderID),
			zap.String("event_type", env.EventType),
			zap.String("status", string(view.Status)),
		)

		return
	}

	view.Status = next
	if env.Reason != "" {
		view.Reason = env.Reason
	}

	logging.Info(
		ctx,
		s.logger,
		"Order view updated",
		zap.String("order_id", env.OrderID),
		zap.String("status", string(next)),
	)
}

// Get returns a copy of the view, or false when the order is unknown.
func (s *Store) Get(orderID string) (OrderView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.orders[orderID]
	if !ok {
		return OrderView{}, false
	}

	return *view, true
}

// GetAll returns copies of every view, ordered by order id for stable output.
func (s *Store) GetAll() []OrderView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]OrderView, 0, len(s.orders))
	for _, view := range s.orders {
		views = append(views, *view)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].OrderID < views[j].OrderID
	})

	return views
}
