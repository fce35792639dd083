package service

import (
	"context"
	"testing"

	"shop-service/internal/errs"
	"shop-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{models.OrderStatusPending, models.OrderStatusPaid, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusShipped, false},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},

		{models.OrderStatusPaid, models.OrderStatusShipped, true},
		{models.OrderStatusPaid, models.OrderStatusCancelled, true},
		{models.OrderStatusPaid, models.OrderStatusDelivered, false},
		{models.OrderStatusPaid, models.OrderStatusPending, false},

		{models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{models.OrderStatusShipped, models.OrderStatusCancelled, false},
		{models.OrderStatusShipped, models.OrderStatusPaid, false},

		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusDelivered, models.OrderStatusShipped, false},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusPaid, false},

		{"garbage", models.OrderStatusPaid, false},
		{models.OrderStatusPending, "garbage", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionGuard(t *testing.T) {
	guard := transitionGuard(models.OrderStatusShipped)

	assert.NoError(t, guard(models.OrderStatusPaid))

	err := guard(models.OrderStatusPending)
	assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))

	err = guard(models.OrderStatusCancelled)
	assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	assert.Empty(t, orderTransitions[models.OrderStatusDelivered])
	assert.Empty(t, orderTransitions[models.OrderStatusCancelled])
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, validOrderStatus(models.OrderStatusPending))
	assert.True(t, validOrderStatus(models.OrderStatusCancelled))
	assert.False(t, validOrderStatus("refunded"))
	assert.False(t, validOrderStatus(""))
}

func TestOrderDeleteAlwaysRejected(t *testing.T) {
	svc := &OrderService{}
	err := svc.Delete(context.Background(), 42)
	assert.True(t, errs.IsKind(err, errs.KindOperationNotAllowed))
}
