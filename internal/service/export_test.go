package service

import (
	"context"

	"github.com/miyog/miyog-engine/internal/store"
)

// InlineTx runs fn without a transaction. The in-memory mocks ignore the
// nil *sql.Tx handed to WithTx.
func InlineTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}
