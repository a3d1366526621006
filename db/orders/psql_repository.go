// Package orders owns Purchase records and their status machine. Every status
// change goes through Finalize, which serializes concurrent callers at the
// storage layer.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// Add stores a new pending order with its line items. A duplicate order id or
// transaction ref returns entity.ErrConflict.
func (r *PostgresRepository) Add(ctx context.Context, order entity.Order) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO orders
				(order_id, buyer_id, event_id, transaction_ref, total_amount, currency, status, gateway_correlation_id, metadata, created_at)
			VALUES
				(:order_id, :buyer_id, :event_id, :transaction_ref, :total_amount, :currency, :status, :gateway_correlation_id, :metadata, :created_at)
		`, order)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return entity.ErrConflict
			}
			return fmt.Errorf("could not insert order: %w", err)
		}

		for i, item := range order.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, ticket_type_id, unit_price, quantity, subtotal, position)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, item.OrderID, item.TicketTypeID, item.UnitPrice, item.Quantity, item.Subtotal, i)
			if err != nil {
				return fmt.Errorf("could not insert order item: %w", err)
			}
		}

		return nil
	})
}

func (r *PostgresRepository) Get(ctx context.Context, orderID string) (entity.Order, error) {
	return r.getBy(ctx, r.db, "order_id", orderID)
}

func (r *PostgresRepository) GetByTransactionRef(ctx context.Context, transactionRef string) (entity.Order, error) {
	order, err := r.getBy(ctx, r.db, "transaction_ref", transactionRef)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	return order, err
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (r *PostgresRepository) getBy(ctx context.Context, q queryer, column, value string) (entity.Order, error) {
	var order entity.Order
	err := q.GetContext(ctx, &order, `
		SELECT order_id, buyer_id, event_id, transaction_ref, total_amount, currency, status, gateway_correlation_id, paid_at, metadata, created_at
		FROM orders
		WHERE `+column+` = $1
	`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Order{}, entity.ErrNotFound
		}
		return entity.Order{}, fmt.Errorf("could not get order: %w", err)
	}

	err = q.SelectContext(ctx, &order.Items, `
		SELECT order_id, ticket_type_id, unit_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, order.OrderID)
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order items: %w", err)
	}

	return order, nil
}

// Finalize atomically moves an order to outcome and runs applyFn inside the
// same transaction, so dependent effects (inventory, tickets, aggregates,
// outbox messages) commit or roll back as one unit.
//
// It is idempotent: an order already in a terminal state consistent with
// outcome returns applied=false with the stored order and no side effects, so
// duplicate gateway callbacks are absorbed. Two concurrent calls on the same
// order serialize on a row lock; only one observes pending.
func (r *PostgresRepository) Finalize(
	ctx context.Context,
	orderID string,
	outcome entity.OrderStatus,
	applyFn func(ctx context.Context, tx *sqlx.Tx, order entity.Order) error,
) (applied bool, order entity.Order, err error) {
	err = db.UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		var current entity.OrderStatus
		err := tx.GetContext(ctx, &current, `
			SELECT status FROM orders WHERE order_id = $1 FOR UPDATE
		`, orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return entity.ErrOrderNotFound
			}
			return fmt.Errorf("could not lock order: %w", err)
		}

		if absorbed(current, outcome) {
			order, err = r.getBy(ctx, tx, "order_id", orderID)
			return err
		}

		if !current.CanTransitionTo(outcome) {
			return fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, current, outcome)
		}

		var paidAt *time.Time
		if outcome == entity.OrderStatusPaid {
			now := time.Now().UTC()
			paidAt = &now
		}

		// compare-and-set on the status we just observed under lock
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $2, paid_at = COALESCE($3, paid_at)
			WHERE order_id = $1 AND status = $4
		`, orderID, outcome, paidAt, current)
		if err != nil {
			return fmt.Errorf("could not update order status: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return entity.ErrStorageConflict
		}

		order, err = r.getBy(ctx, tx, "order_id", orderID)
		if err != nil {
			return err
		}

		applied = true

		if applyFn != nil {
			if err := applyFn(ctx, tx, order); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return false, entity.Order{}, err
	}

	return applied, order, nil
}

// absorbed reports whether outcome is already reflected by the current
// status. A refunded order has been paid before, so a late paid callback for
// it is a duplicate, not a violation.
func absorbed(current, outcome entity.OrderStatus) bool {
	if current == outcome {
		return true
	}
	return outcome == entity.OrderStatusPaid && current == entity.OrderStatusRefunded
}

// SetGatewayCorrelationTx records the gateway's correlation id as part of a
// finalize transaction.
func (r *PostgresRepository) SetGatewayCorrelationTx(ctx context.Context, tx *sqlx.Tx, orderID, correlationID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders SET gateway_correlation_id = $2 WHERE order_id = $1
	`, orderID, correlationID)
	if err != nil {
		return fmt.Errorf("could not set gateway correlation id: %w", err)
	}
	return nil
}
