package database

import (
	"context"
	"database/sql"
	"fmt"
)

type TxOptions struct {
	ReadOnly bool
}

func DefaultTxOptions() TxOptions {
	return TxOptions{ReadOnly: false}
}

// WithTransaction runs fn inside a single transaction. The transaction is
// committed only if fn returns nil; any error rolls every statement back.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
