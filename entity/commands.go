package entity

// RefundOrder is sent by the refund workflow once a refund is approved.
// Processing it reuses the same atomic primitives as payment finalization.
type RefundOrder struct {
	Header  EventHeader `json:"header"`
	OrderID string      `json:"order_id"`
}
