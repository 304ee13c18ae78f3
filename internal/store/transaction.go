package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
)

// TxFn is the unit of work run by RunInTransaction. Stores built on tx see
// each other's writes; none of them are visible outside until fn returns nil.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn in a read-committed transaction and commits when
// it returns nil. An error or panic from fn rolls back; the panic is
// re-raised after the rollback.
//
// Credit debits and task inserts share one transaction so a failed insert
// refunds nothing it never charged.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		log.Error("begin transaction failed", slog.String("error", redact.Error(err)))
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback after panic failed",
				slog.String("error", redact.Error(rbErr)), slog.Any("panic", p))
		}
		// ALLOW-PANIC: re-raising the caller's panic once the transaction is closed
		panic(p)
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback failed", slog.String("error", redact.Error(rbErr)))
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		log.Debug("transaction rolled back", slog.String("error", redact.Error(err)))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", slog.String("error", redact.Error(err)))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
