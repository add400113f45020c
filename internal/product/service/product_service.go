package service

import (
	"context"

	"github.com/mzholdas/order-saga/internal/product/domain"
	"github.com/mzholdas/order-saga/internal/product/repository"
	"github.com/mzholdas/order-saga/pkg/logging"
	"go.uber.org/zap"
)

type CreateProductRequest struct {
	SKU           string `json:"sku" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	Price         int64  `json:"price" validate:"required,gt=0"`
	StockQuantity int32  `json:"stock_quantity" validate:"gte=0"`
}

type ProductService interface {
	Create(ctx context.Context, req *CreateProductRequest) (*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, limit, offset int64) ([]domain.Product, error)
	UpdatePrice(ctx context.Context, id string, price int64) error
	Deactivate(ctx context.Context, id string) error
}

type productService struct {
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

func NewProductService(productRepo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *productService) Create(ctx context.Context, req *CreateProductRequest) (*domain.Product, error) {
	product, err := domain.NewProduct(req.SKU, req.Name, req.Description, req.Price, req.StockQuantity)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		logging.Warn(
			ctx,
			s.logger,
			"Failed to create product",
			zap.String("sku", req.SKU),
			zap.Error(err),
		)

		return nil, err
	}

	return product, nil
}

func (s *productService) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) List(ctx context.Context, limit, offset int64) ([]domain.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	return s.productRepo.List(ctx, limit, offset)
}

func (s *productService) UpdatePrice(ctx context.Context, id string, price int64) error {
	if price <= 0 {
		return domain.ErrInvalidPrice
	}

	return s.productRepo.UpdatePrice(ctx, id, price)
}

func (s *productService) Deactivate(ctx context.Context, id string) error {
	return s.productRepo.Deactivate(ctx, id)
}
