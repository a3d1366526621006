package entity

// OrderNotification is the fire-and-forget hand-off to the notification
// collaborator after a successful payment.
type OrderNotification struct {
	OrderID         string `json:"order_id"`
	AttendeeContact string `json:"attendee_contact"`
	EventSummary    string `json:"event_summary"`
	TicketCount     int    `json:"ticket_count"`
	TotalAmount     Money  `json:"total_amount"`
}
