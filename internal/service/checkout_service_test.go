package service

import (
	"testing"

	"shop-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrderLines(t *testing.T) {
	cart := []models.CartLine{
		{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromFloat(12.50)},
		{ProductID: 2, Quantity: 1, UnitPrice: decimal.NewFromFloat(0.99)},
	}

	lines := buildOrderLines(cart)
	require.Len(t, lines, 2)

	assert.Equal(t, int64(1), lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromFloat(12.50)))
	assert.True(t, lines[0].Subtotal.Equal(decimal.NewFromFloat(25.00)))

	assert.True(t, lines[1].Subtotal.Equal(decimal.NewFromFloat(0.99)))
}

func TestOrderTotal(t *testing.T) {
	lines := []models.OrderLine{
		{Subtotal: decimal.NewFromFloat(25.00)},
		{Subtotal: decimal.NewFromFloat(0.99)},
		{Subtotal: decimal.NewFromFloat(4.01)},
	}
	assert.True(t, orderTotal(lines).Equal(decimal.NewFromInt(30)))

	assert.True(t, orderTotal(nil).Equal(decimal.Zero))
}

func TestCartLineSubtotal(t *testing.T) {
	line := models.CartLine{Quantity: 3, UnitPrice: decimal.NewFromFloat(19.99)}
	assert.True(t, line.Subtotal().Equal(decimal.NewFromFloat(59.97)))
}

func TestToLineData(t *testing.T) {
	lines := []models.OrderLine{
		{ProductID: 7, Quantity: 4, UnitPrice: decimal.NewFromInt(5), Subtotal: decimal.NewFromInt(20)},
	}
	data := toLineData(lines)
	require.Len(t, data, 1)
	assert.Equal(t, int64(7), data[0].ProductID)
	assert.Equal(t, 4, data[0].Quantity)
	assert.True(t, data[0].UnitPrice.Equal(decimal.NewFromInt(5)))
}
