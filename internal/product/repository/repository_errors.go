package repository

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateSKU      = errors.New("product with this sku already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)
