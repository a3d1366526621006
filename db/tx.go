package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"boxoffice/entity"
)

const (
	pqUniqueViolationCode      = "23505"
	pqSerializationFailureCode = "40001"
	pqDeadlockDetectedCode     = "40P01"
)

// UpdateInTx runs fn inside a transaction with the given isolation level,
// committing on success and rolling back on error. Serialization failures are
// translated to entity.ErrStorageConflict so callers can retry.
func UpdateInTx(
	ctx context.Context,
	db *sqlx.DB,
	isolation sql.IsolationLevel,
	fn func(ctx context.Context, tx *sqlx.Tx) error,
) (err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, rollbackErr)
			}
			err = translateConflict(err)
			return
		}

		err = translateConflict(tx.Commit())
	}()

	return fn(ctx, tx)
}

// translateConflict maps Postgres serialization and deadlock failures to the
// retryable sentinel; everything else passes through unchanged.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailureCode, pqDeadlockDetectedCode:
			return fmt.Errorf("%w: %s", entity.ErrStorageConflict, pqErr.Message)
		}
	}

	return err
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, used to absorb duplicate inserts.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolationCode
}
