package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

var (
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrInvalidStock      = errors.New("stock quantity must not be negative")
	ErrMissingSKU        = errors.New("sku is required")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Product struct {
	ID            string        `db:"id"`
	SKU           string        `db:"sku"`
	Name          string        `db:"name"`
	Description   string        `db:"description"`
	Price         int64         `db:"price"`
	StockQuantity int32         `db:"stock_quantity"`
	Status        ProductStatus `db:"status"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func NewProduct(sku, name, description string, price int64, stockQuantity int32) (*Product, error) {
	if sku == "" {
		return nil, ErrMissingSKU
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if stockQuantity < 0 {
		return nil, ErrInvalidStock
	}

	return &Product{
		ID:            uuid.New().String(),
		SKU:           sku,
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stockQuantity,
		Status:        ProductStatusActive,
	}, nil
}

// ReserveStock decrements the in-memory quantity, never below zero.
func (p *Product) ReserveStock(quantity int32) error {
	if p.StockQuantity < quantity {
		return fmt.Errorf("%w: available %d, requested %d", ErrInsufficientStock, p.StockQuantity, quantity)
	}

	p.StockQuantity -= quantity
	return nil
}

func (p *Product) ReleaseStock(quantity int32) {
	p.StockQuantity += quantity
}

func (p *Product) UpdatePrice(price int64) error {
	if price <= 0 {
		return ErrInvalidPrice
	}

	p.Price = price
	return nil
}

func (p *Product) Deactivate() {
	p.Status = ProductStatusInactive
}
