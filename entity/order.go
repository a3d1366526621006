package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// orderTransitions is the whole status machine: pending is the only
// non-terminal state besides paid, and paid can only move to refunded.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusRefunded},
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

type LineItem struct {
	OrderID      string `json:"order_id" db:"order_id"`
	TicketTypeID string `json:"ticket_type_id" db:"ticket_type_id"`
	UnitPrice    int64  `json:"unit_price" db:"unit_price"`
	Quantity     int    `json:"quantity" db:"quantity"`
	Subtotal     int64  `json:"subtotal" db:"subtotal"`
}

type Order struct {
	OrderID              string      `json:"order_id" db:"order_id"`
	BuyerID              string      `json:"buyer_id" db:"buyer_id"`
	EventID              string      `json:"event_id" db:"event_id"`
	TransactionRef       string      `json:"transaction_ref" db:"transaction_ref"`
	Items                []LineItem  `json:"items" db:"-"`
	TotalAmount          int64       `json:"total_amount" db:"total_amount"`
	Currency             string      `json:"currency" db:"currency"`
	Status               OrderStatus `json:"status" db:"status"`
	GatewayCorrelationID string      `json:"gateway_correlation_id" db:"gateway_correlation_id"`
	PaidAt               *time.Time  `json:"paid_at" db:"paid_at"`
	Metadata             []byte      `json:"metadata" db:"metadata"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
}

// NewOrder builds a pending order. Subtotals and the order total are computed
// here and nowhere else, so TotalAmount always equals the sum of subtotals.
func NewOrder(buyerID, eventID, currency string, items []LineItem, metadata []byte) (Order, error) {
	if buyerID == "" {
		return Order{}, fmt.Errorf("buyer id must be set")
	}
	if eventID == "" {
		return Order{}, fmt.Errorf("event id must be set")
	}
	if len(items) == 0 {
		return Order{}, fmt.Errorf("order must have at least one line item")
	}

	orderID := uuid.NewString()

	var total int64
	for i := range items {
		if items[i].Quantity <= 0 {
			return Order{}, fmt.Errorf("line item quantity must be greater than 0")
		}
		if items[i].UnitPrice < 0 {
			return Order{}, fmt.Errorf("line item unit price must not be negative")
		}
		items[i].OrderID = orderID
		items[i].Subtotal = items[i].UnitPrice * int64(items[i].Quantity)
		total += items[i].Subtotal
	}

	return Order{
		OrderID:        orderID,
		BuyerID:        buyerID,
		EventID:        eventID,
		TransactionRef: uuid.NewString(),
		Items:          items,
		TotalAmount:    total,
		Currency:       currency,
		Status:         OrderStatusPending,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// TicketCount is the number of tickets this order pays for.
func (o Order) TicketCount() int {
	var count int
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}
