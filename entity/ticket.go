package entity

import "time"

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusConfirmed TicketStatus = "confirmed"
	TicketStatusCheckedIn TicketStatus = "checked_in"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusRefunded  TicketStatus = "refunded"
)

type Ticket struct {
	TicketID     string       `json:"ticket_id" db:"ticket_id"`
	TicketTypeID string       `json:"ticket_type_id" db:"ticket_type_id"`
	EventID      string       `json:"event_id" db:"event_id"`
	AttendeeID   string       `json:"attendee_id" db:"attendee_id"`
	OrderID      string       `json:"order_id" db:"order_id"`
	// Credential is the signed admission payload the holder presents at the
	// door; CredentialHash indexes it without re-serializing.
	Credential     string       `json:"credential" db:"credential"`
	CredentialHash string       `json:"credential_hash" db:"credential_hash"`
	Status         TicketStatus `json:"status" db:"status"`
	IssuedAt       time.Time    `json:"issued_at" db:"issued_at"`
	CheckedInAt    *time.Time   `json:"checked_in_at" db:"checked_in_at"`
	CheckedInBy    *string      `json:"checked_in_by" db:"checked_in_by"`
}
