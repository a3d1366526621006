package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// StoreTx inserts minted tickets as part of an order finalization, so tickets
// only exist if the paying transaction commits. Re-inserting the same ticket
// id is a no-op, which keeps retried finalizations idempotent.
func (r *PostgresRepository) StoreTx(ctx context.Context, tx *sqlx.Tx, tickets []entity.Ticket) error {
	for _, ticket := range tickets {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO tickets
				(ticket_id, ticket_type_id, event_id, attendee_id, order_id, credential, credential_hash, status, issued_at)
			VALUES
				(:ticket_id, :ticket_type_id, :event_id, :attendee_id, :order_id, :credential, :credential_hash, :status, :issued_at)
			ON CONFLICT (ticket_id) DO NOTHING
		`, ticket)
		if err != nil {
			return fmt.Errorf("could not insert ticket %s: %w", ticket.TicketID, err)
		}
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ticketID string) (entity.Ticket, error) {
	return r.getBy(ctx, "ticket_id", ticketID)
}

// GetByCredentialHash resolves a scanned credential without re-serializing
// the payload.
func (r *PostgresRepository) GetByCredentialHash(ctx context.Context, hash string) (entity.Ticket, error) {
	ticket, err := r.getBy(ctx, "credential_hash", hash)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.Ticket{}, entity.ErrTicketNotFound
	}
	return ticket, err
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT ticket_id, ticket_type_id, event_id, attendee_id, order_id, credential, credential_hash, status, issued_at, checked_in_at, checked_in_by
		FROM tickets
		WHERE `+column+` = $1
	`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Ticket{}, entity.ErrNotFound
		}
		return entity.Ticket{}, fmt.Errorf("could not get ticket: %w", err)
	}
	return ticket, nil
}

func (r *PostgresRepository) FindByOrder(ctx context.Context, orderID string) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, ticket_type_id, event_id, attendee_id, order_id, credential, credential_hash, status, issued_at, checked_in_at, checked_in_by
		FROM tickets
		WHERE order_id = $1
		ORDER BY issued_at, ticket_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("could not list tickets for order: %w", err)
	}
	return tickets, nil
}

// CheckIn transitions a confirmed ticket to checked_in, recording time and
// actor atomically with the status check. Exactly one of two simultaneous
// scans wins; the loser (and any later scan) gets applied=false and the
// stored row carrying the winner's timestamp and actor.
func (r *PostgresRepository) CheckIn(ctx context.Context, ticketID, actor string) (applied bool, ticket entity.Ticket, err error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2, checked_in_at = $3, checked_in_by = $4
		WHERE ticket_id = $1 AND status = $5
	`, ticketID, entity.TicketStatusCheckedIn, now, actor, entity.TicketStatusConfirmed)
	if err != nil {
		return false, entity.Ticket{}, fmt.Errorf("could not check in ticket: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, entity.Ticket{}, err
	}

	ticket, err = r.Get(ctx, ticketID)
	if err != nil {
		return false, entity.Ticket{}, err
	}

	return rows > 0, ticket, nil
}

// MarkRefundedTx voids all of an order's tickets as part of a refund
// finalization. Checked-in tickets stay checked_in; they were consumed.
func (r *PostgresRepository) MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, orderID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2
		WHERE order_id = $1 AND status = $3
	`, orderID, entity.TicketStatusRefunded, entity.TicketStatusConfirmed)
	if err != nil {
		return fmt.Errorf("could not mark tickets refunded: %w", err)
	}
	return nil
}
