package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder_totals(t *testing.T) {
	order, err := NewOrder("buyer-1", "event-1", "USD", []LineItem{
		{TicketTypeID: "vip", UnitPrice: 50000, Quantity: 1},
		{TicketTypeID: "ga", UnitPrice: 10000, Quantity: 2},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(70000), order.TotalAmount)
	assert.Equal(t, 3, order.TicketCount())
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.NotEmpty(t, order.TransactionRef)

	var sum int64
	for _, item := range order.Items {
		sum += item.Subtotal
		assert.Equal(t, order.OrderID, item.OrderID)
	}
	assert.Equal(t, order.TotalAmount, sum)
}

func TestNewOrder_validation(t *testing.T) {
	_, err := NewOrder("", "event-1", "USD", []LineItem{{TicketTypeID: "ga", Quantity: 1}}, nil)
	require.Error(t, err)

	_, err = NewOrder("buyer-1", "event-1", "USD", nil, nil)
	require.Error(t, err)

	_, err = NewOrder("buyer-1", "event-1", "USD", []LineItem{{TicketTypeID: "ga", Quantity: 0}}, nil)
	require.Error(t, err)
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusFailed))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusRefunded))

	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusFailed.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusRefunded.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusRefunded))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusRefunded))
}
