package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProduct_Invariants(t *testing.T) {
	_, err := NewProduct("", "Wheat", "", 100, 10)
	require.ErrorIs(t, err, ErrMissingSKU)

	_, err = NewProduct("WHT-1", "Wheat", "", 0, 10)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewProduct("WHT-1", "Wheat", "", 100, -1)
	require.ErrorIs(t, err, ErrInvalidStock)

	p, err := NewProduct("WHT-1", "Wheat", "grain", 100, 10)
	require.NoError(t, err)
	require.Equal(t, ProductStatusActive, p.Status)
	require.NotEmpty(t, p.ID)
}

func TestProduct_ReserveNeverGoesNegative(t *testing.T) {
	p, err := NewProduct("WHT-1", "Wheat", "", 100, 5)
	require.NoError(t, err)

	require.NoError(t, p.ReserveStock(5))
	require.Equal(t, int32(0), p.StockQuantity)

	err = p.ReserveStock(1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, int32(0), p.StockQuantity)

	p.ReleaseStock(3)
	require.Equal(t, int32(3), p.StockQuantity)
}

func TestProduct_UpdatePrice(t *testing.T) {
	p, err := NewProduct("WHT-1", "Wheat", "", 100, 5)
	require.NoError(t, err)

	require.ErrorIs(t, p.UpdatePrice(0), ErrInvalidPrice)
	require.NoError(t, p.UpdatePrice(250))
	require.Equal(t, int64(250), p.Price)
}
