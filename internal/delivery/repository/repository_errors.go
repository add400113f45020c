package repository

import "errors"

var (
	ErrDeliveryNotFound  = errors.New("delivery not found")
	ErrDuplicateDelivery = errors.New("delivery already exists for order")
)
