package service

import (
	"context"
	"database/sql"

	"github.com/miyog/miyog-engine/internal/store"
)

// TxRunner runs fn inside a database transaction.
type TxRunner func(ctx context.Context, fn store.TxFn) error

// NewTxRunner returns a TxRunner backed by store.RunInTransaction.
func NewTxRunner(db *sql.DB) TxRunner {
	return func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, db, fn)
	}
}
