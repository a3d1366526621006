package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// OrderPaid is published in the same transaction that finalizes the order,
// after tickets are minted and inventory is committed.
type OrderPaid struct {
	Header         EventHeader `json:"header"`
	OrderID        string      `json:"order_id"`
	EventID        string      `json:"event_id"`
	BuyerID        string      `json:"buyer_id"`
	TransactionRef string      `json:"transaction_ref"`
	TicketCount    int         `json:"ticket_count"`
	TotalAmount    Money       `json:"total_amount"`
}

type OrderPaymentFailed struct {
	Header         EventHeader `json:"header"`
	OrderID        string      `json:"order_id"`
	EventID        string      `json:"event_id"`
	TransactionRef string      `json:"transaction_ref"`
	GatewayStatus  string      `json:"gateway_status"`
	Reason         string      `json:"reason"`
}

type OrderRefunded struct {
	Header      EventHeader `json:"header"`
	OrderID     string      `json:"order_id"`
	EventID     string      `json:"event_id"`
	TicketCount int         `json:"ticket_count"`
	TotalAmount Money       `json:"total_amount"`
}

type TicketCheckedIn struct {
	Header      EventHeader `json:"header"`
	TicketID    string      `json:"ticket_id"`
	EventID     string      `json:"event_id"`
	CheckedInBy string      `json:"checked_in_by"`
	CheckedInAt time.Time   `json:"checked_in_at"`
}
