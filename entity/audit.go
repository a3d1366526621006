package entity

import "time"

// PaymentAudit is the ops-facing trail of gateway callbacks that did not end
// in a paid order: failures, sold-out rejections, unknown gateway statuses.
type PaymentAudit struct {
	AuditID        string    `json:"audit_id" db:"audit_id"`
	TransactionRef string    `json:"transaction_ref" db:"transaction_ref"`
	OrderID        *string   `json:"order_id" db:"order_id"`
	GatewayStatus  string    `json:"gateway_status" db:"gateway_status"`
	Outcome        string    `json:"outcome" db:"outcome"`
	Reason         string    `json:"reason" db:"reason"`
	RecordedAt     time.Time `json:"recorded_at" db:"recorded_at"`
}
