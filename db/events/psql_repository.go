package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db must be set")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Store(ctx context.Context, event entity.Event) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (event_id, name, venue, starts_at, currency, sold_tickets, total_revenue)
		VALUES (:event_id, :name, :venue, :starts_at, :currency, :sold_tickets, :total_revenue)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, event)
	if err != nil {
		return fmt.Errorf("could not insert event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	var event entity.Event
	err := r.db.GetContext(ctx, &event, `
		SELECT event_id, name, venue, starts_at, currency, sold_tickets, total_revenue
		FROM events
		WHERE event_id = $1
	`, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Event{}, entity.ErrNotFound
		}
		return entity.Event{}, fmt.Errorf("could not get event: %w", err)
	}
	return event, nil
}

// IncrementSalesTx adjusts the derived sold/revenue counters. It may only be
// called from the transaction that finalizes or refunds an order; there is no
// other write path to these columns.
func (r *PostgresRepository) IncrementSalesTx(ctx context.Context, tx *sqlx.Tx, eventID string, tickets int, revenue int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET sold_tickets = sold_tickets + $2, total_revenue = total_revenue + $3
		WHERE event_id = $1
	`, eventID, tickets, revenue)
	if err != nil {
		return fmt.Errorf("could not update event sales counters: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return entity.ErrNotFound
	}
	return nil
}
