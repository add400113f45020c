package service

import (
	"context"
	"testing"

	"github.com/mzholdas/order-saga/internal/delivery/domain"
	"github.com/mzholdas/order-saga/internal/delivery/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDeliveryRepo struct {
	deliveries    map[string]*domain.Delivery
	confirmations []*domain.Confirmation
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{deliveries: make(map[string]*domain.Delivery)}
}

func (r *fakeDeliveryRepo) Create(ctx context.Context, delivery *domain.Delivery) error {
	for _, existing := range r.deliveries {
		if existing.OrderID == delivery.OrderID {
			return repository.ErrDuplicateDelivery
		}
	}

	copied := *delivery
	r.deliveries[delivery.ID] = &copied
	return nil
}

func (r *fakeDeliveryRepo) FindByID(ctx context.Context, id string) (*domain.Delivery, error) {
	delivery, ok := r.deliveries[id]
	if !ok {
		return nil, repository.ErrDeliveryNotFound
	}

	copied := *delivery
	return &copied, nil
}

func (r *fakeDeliveryRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	for _, delivery := range r.deliveries {
		if delivery.OrderID == orderID {
			copied := *delivery
			return &copied, nil
		}
	}

	return nil, repository.ErrDeliveryNotFound
}

func (r *fakeDeliveryRepo) List(ctx context.Context, limit, offset int64) ([]domain.Delivery, error) {
	var out []domain.Delivery
	for _, delivery := range r.deliveries {
		out = append(out, *delivery)
	}

	return out, nil
}

func (r *fakeDeliveryRepo) Update(ctx context.Context, delivery *domain.Delivery) error {
	if _, ok := r.deliveries[delivery.ID]; !ok {
		return repository.ErrDeliveryNotFound
	}

	copied := *delivery
	r.deliveries[delivery.ID] = &copied
	return nil
}

func (r *fakeDeliveryRepo) SaveConfirmation(ctx context.Context, confirmation *domain.Confirmation) error {
	r.confirmations = append(r.confirmations, confirmation)
	return nil
}

func TestDeliveryService_FullLifecycle(t *testing.T) {
	repo := newFakeDeliveryRepo()
	svc := NewDeliveryService(zap.NewNop(), repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateDeliveryRequest{OrderID: "11111111-1111-4111-8111-111111111111"})
	require.NoError(t, err)
	require.Equal(t, domain.DeliveryStatusPending, created.Status)

	started, err := svc.Start(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DeliveryStatusInTransit, started.Status)

	confirmed, err := svc.Confirm(ctx, created.ID, &ConfirmDeliveryRequest{RecipientName: "A. Recipient"})
	require.NoError(t, err)
	require.Equal(t, domain.DeliveryStatusDelivered, confirmed.Status)
	require.NotNil(t, confirmed.ActualDeliveryDate)

	require.Len(t, repo.confirmations, 1)
	require.Equal(t, created.ID, repo.confirmations[0].DeliveryID)
	require.Equal(t, "A. Recipient", repo.confirmations[0].RecipientName)
}

func TestDeliveryService_OneDeliveryPerOrder(t *testing.T) {
	repo := newFakeDeliveryRepo()
	svc := NewDeliveryService(zap.NewNop(), repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateDeliveryRequest{OrderID: "order-1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateDeliveryRequest{OrderID: "order-1"})
	require.ErrorIs(t, err, repository.ErrDuplicateDelivery)
}

func TestDeliveryService_CancelAfterDeliveryRejected(t *testing.T) {
	repo := newFakeDeliveryRepo()
	svc := NewDeliveryService(zap.NewNop(), repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateDeliveryRequest{OrderID: "order-2"})
	require.NoError(t, err)

	_, err = svc.Start(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, created.ID, &ConfirmDeliveryRequest{RecipientName: "B"})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyDelivered)
}

func TestDeliveryService_ConfirmRequiresTransit(t *testing.T) {
	repo := newFakeDeliveryRepo()
	svc := NewDeliveryService(zap.NewNop(), repo)

	created, err := svc.Create(context.Background(), &CreateDeliveryRequest{OrderID: "order-3"})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), created.ID, &ConfirmDeliveryRequest{RecipientName: "C"})
	require.ErrorIs(t, err, domain.ErrNotInTransit)
}
