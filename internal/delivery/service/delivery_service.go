package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mzholdas/order-saga/internal/delivery/domain"
	"github.com/mzholdas/order-saga/internal/delivery/repository"
	"github.com/mzholdas/order-saga/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CreateDeliveryRequest struct {
	OrderID              string     `json:"order_id" validate:"required,uuid4"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
}

type ConfirmDeliveryRequest struct {
	RecipientName string `json:"recipient_name" validate:"required"`
	SignatureData string `json:"signature_data"`
	Notes         string `json:"notes"`
}

type DeliveryService interface {
	Create(ctx context.Context, req *CreateDeliveryRequest) (*domain.Delivery, error)
	FindByID(ctx context.Context, id string) (*domain.Delivery, error)
	List(ctx context.Context, limit, offset int64) ([]domain.Delivery, error)
	Start(ctx context.Context, id string) (*domain.Delivery, error)
	Confirm(ctx context.Context, id string, req *ConfirmDeliveryRequest) (*domain.Delivery, error)
	Cancel(ctx context.Context, id string) (*domain.Delivery, error)
}

type deliveryService struct {
	logger *zap.Logger
	repo   repository.DeliveryRepository
	tracer trace.Tracer
}

func NewDeliveryService(logger *zap.Logger, repo repository.DeliveryRepository) DeliveryService {
	return &deliveryService{
		logger: logger,
		repo:   repo,
		tracer: otel.Tracer("delivery_service"),
	}
}

func (s *deliveryService) Create(ctx context.Context, req *CreateDeliveryRequest) (*domain.Delivery, error) {
	ctx, span := s.tracer.Start(ctx, "DeliveryService.Create")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", req.OrderID))

	delivery, err := domain.NewDelivery(uuid.New().String(), req.OrderID, req.ExpectedDeliveryDate)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, delivery); err != nil {
		return nil, err
	}

	logging.Info(
		ctx,
		s.logger,
		"Delivery created",
		zap.String("delivery_id", delivery.ID),
		zap.String("order_id", delivery.OrderID),
	)

	return delivery, nil
}

func (s *deliveryService) FindByID(ctx context.Context, id string) (*domain.Delivery, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *deliveryService) List(ctx context.Context, limit, offset int64) ([]domain.Delivery, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *deliveryService) Start(ctx context.Context, id string) (*domain.Delivery, error) {
	return s.transition(ctx, id, func(d *domain.Delivery) error {
		return d.Start()
	})
}

func (s *deliveryService) Confirm(ctx context.Context, id string, req *ConfirmDeliveryRequest) (*domain.Delivery, error) {
	ctx, span := s.tracer.Start(ctx, "DeliveryService.Confirm")
	defer span.End()

	delivery, err := s.transition(ctx, id, func(d *domain.Delivery) error {
		return d.Confirm(time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	confirmation := &domain.Confirmation{
		ID:            uuid.New().String(),
		DeliveryID:    delivery.ID,
		RecipientName: req.RecipientName,
		SignatureData: req.SignatureData,
		Notes:         req.Notes,
	}

	if err := s.repo.SaveConfirmation(ctx, confirmation); err != nil {
		return nil, fmt.Errorf("delivery confirmed but receipt not recorded: %w", err)
	}

	logging.Info(
		ctx,
		s.logger,
		"Delivery confirmed",
		zap.String("delivery_id", delivery.ID),
		zap.String("recipient", req.RecipientName),
	)

	return delivery, nil
}

func (s *deliveryService) Cancel(ctx context.Context, id string) (*domain.Delivery, error) {
	return s.transition(ctx, id, func(d *domain.Delivery) error {
		return d.Cancel()
	})
}

func (s *deliveryService) transition(ctx context.Context, id string, apply func(*domain.Delivery) error) (*domain.Delivery, error) {
	delivery, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(delivery); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, delivery); err != nil {
		return nil, err
	}

	return delivery, nil
}
