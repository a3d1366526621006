package audit

import (
	"context"
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

func (r *PostgresRepository) Store(ctx context.Context, entry entity.PaymentAudit) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payment_audit (audit_id, transaction_ref, order_id, gateway_status, outcome, reason, recorded_at)
		VALUES (:audit_id, :transaction_ref, :order_id, :gateway_status, :outcome, :reason, :recorded_at)
		ON CONFLICT DO NOTHING -- ignore re-delivery
	`, entry)
	if err != nil {
		return fmt.Errorf("could not store payment audit entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByTransactionRef(ctx context.Context, transactionRef string) ([]entity.PaymentAudit, error) {
	var entries []entity.PaymentAudit
	err := r.db.SelectContext(ctx, &entries, `
		SELECT audit_id, transaction_ref, order_id, gateway_status, outcome, reason, recorded_at
		FROM payment_audit
		WHERE transaction_ref = $1
		ORDER BY recorded_at
	`, transactionRef)
	if err != nil {
		return nil, fmt.Errorf("could not list payment audit entries: %w", err)
	}
	return entries, nil
}
