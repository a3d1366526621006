package entity

import "time"

type Event struct {
	EventID  string    `json:"event_id" db:"event_id"`
	Name     string    `json:"name" db:"name"`
	Venue    string    `json:"venue" db:"venue"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	Currency string    `json:"currency" db:"currency"`

	// Derived sales counters. Only the order finalize and refund transactions
	// may touch them, never any other write path.
	SoldTickets  int   `json:"sold_tickets" db:"sold_tickets"`
	TotalRevenue int64 `json:"total_revenue" db:"total_revenue"`
}

func (e Event) Summary() string {
	return e.Name + " @ " + e.Venue
}
