// Package tickettypes owns the sold/available counters. The availability
// check and the increment happen in one guarded UPDATE; no other code path
// may mutate quantity_sold.
package tickettypes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"boxoffice/db"
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

func (r *PostgresRepository) Add(ctx context.Context, ticketType entity.TicketType) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO ticket_types (ticket_type_id, event_id, name, unit_price, quantity_available, quantity_sold)
		VALUES (:ticket_type_id, :event_id, :name, :unit_price, :quantity_available, :quantity_sold)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, ticketType)
	if err != nil {
		return fmt.Errorf("could not insert ticket type: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ticketTypeID string) (entity.TicketType, error) {
	var ticketType entity.TicketType
	err := r.db.GetContext(ctx, &ticketType, `
		SELECT ticket_type_id, event_id, name, unit_price, quantity_available, quantity_sold
		FROM ticket_types
		WHERE ticket_type_id = $1
	`, ticketTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.TicketType{}, entity.ErrNotFound
		}
		return entity.TicketType{}, fmt.Errorf("could not get ticket type: %w", err)
	}
	return ticketType, nil
}

func (r *PostgresRepository) FindByEvent(ctx context.Context, eventID string) ([]entity.TicketType, error) {
	var ticketTypes []entity.TicketType
	err := r.db.SelectContext(ctx, &ticketTypes, `
		SELECT ticket_type_id, event_id, name, unit_price, quantity_available, quantity_sold
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY unit_price DESC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("could not list ticket types: %w", err)
	}
	return ticketTypes, nil
}

// Commit increments quantity_sold by quantity in its own transaction. Most
// callers want CommitTx inside an order finalization instead.
func (r *PostgresRepository) Commit(ctx context.Context, ticketTypeID string, quantity int) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		return r.CommitTx(ctx, tx, ticketTypeID, quantity)
	})
}

// CommitTx performs the availability check and the increment as one atomic
// step: the UPDATE only matches while quantity_sold + quantity stays within
// quantity_available. Zero rows affected means the type is exhausted (or
// unknown), and the whole enclosing transaction must fail.
func (r *PostgresRepository) CommitTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE ticket_types
		SET quantity_sold = quantity_sold + $2
		WHERE ticket_type_id = $1
		  AND quantity_sold + $2 <= quantity_available
	`, ticketTypeID, quantity)
	if err != nil {
		return fmt.Errorf("could not commit inventory: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `SELECT TRUE FROM ticket_types WHERE ticket_type_id = $1`, ticketTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("could not check ticket type: %w", err)
	}

	return entity.ErrExhausted
}

// Release returns quantity units to the pool, floored at zero. Used by refund
// processing.
func (r *PostgresRepository) Release(ctx context.Context, ticketTypeID string, quantity int) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		return r.ReleaseTx(ctx, tx, ticketTypeID, quantity)
	})
}

func (r *PostgresRepository) ReleaseTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE ticket_types
		SET quantity_sold = GREATEST(quantity_sold - $2, 0)
		WHERE ticket_type_id = $1
	`, ticketTypeID, quantity)
	if err != nil {
		return fmt.Errorf("could not release inventory: %w", err)
	}
	return nil
}
