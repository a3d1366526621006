package entity

type TicketType struct {
	TicketTypeID      string `json:"ticket_type_id" db:"ticket_type_id"`
	EventID           string `json:"event_id" db:"event_id"`
	Name              string `json:"name" db:"name"`
	UnitPrice         int64  `json:"unit_price" db:"unit_price"`
	QuantityAvailable int    `json:"quantity_available" db:"quantity_available"`
	QuantitySold      int    `json:"quantity_sold" db:"quantity_sold"`
}
