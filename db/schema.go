package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	venue VARCHAR(255) NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	currency VARCHAR(3) NOT NULL,
	sold_tickets INT NOT NULL DEFAULT 0,
	total_revenue BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ticket_types (
	ticket_type_id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events (event_id),
	name VARCHAR(255) NOT NULL,
	unit_price BIGINT NOT NULL,
	quantity_available INT NOT NULL,
	quantity_sold INT NOT NULL DEFAULT 0,
	CHECK (quantity_sold >= 0 AND quantity_sold <= quantity_available)
);

CREATE TABLE IF NOT EXISTS orders (
	order_id UUID PRIMARY KEY,
	buyer_id VARCHAR(255) NOT NULL,
	event_id UUID NOT NULL REFERENCES events (event_id),
	transaction_ref VARCHAR(255) NOT NULL UNIQUE,
	total_amount BIGINT NOT NULL,
	currency VARCHAR(3) NOT NULL,
	status VARCHAR(32) NOT NULL,
	gateway_correlation_id VARCHAR(255) NOT NULL DEFAULT '',
	paid_at TIMESTAMPTZ,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id UUID NOT NULL REFERENCES orders (order_id),
	ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
	unit_price BIGINT NOT NULL,
	quantity INT NOT NULL,
	subtotal BIGINT NOT NULL,
	position INT NOT NULL,
	PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS tickets (
	ticket_id UUID PRIMARY KEY,
	ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
	event_id UUID NOT NULL REFERENCES events (event_id),
	attendee_id VARCHAR(255) NOT NULL,
	order_id UUID NOT NULL REFERENCES orders (order_id),
	credential TEXT NOT NULL,
	credential_hash VARCHAR(64) NOT NULL UNIQUE,
	status VARCHAR(32) NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL,
	checked_in_at TIMESTAMPTZ,
	checked_in_by VARCHAR(255)
);

CREATE TABLE IF NOT EXISTS payment_audit (
	audit_id UUID PRIMARY KEY,
	transaction_ref VARCHAR(255) NOT NULL,
	order_id UUID,
	gateway_status VARCHAR(64) NOT NULL,
	outcome VARCHAR(64) NOT NULL,
	reason VARCHAR(255) NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}
	return nil
}
