package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/verbdrill/internal/platform/logger"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx, so record
// helpers run unchanged inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFn is the body of a transaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// TxBeginner starts transactions. *sql.DB and *sqlx.DB both satisfy it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// RunInTransaction runs fn inside a transaction, committing when it returns
// nil and rolling back otherwise.
//
// An error from fn is returned exactly as fn produced it, even when the
// rollback fails too, so sentinel errors raised by an UpdateFn reach the
// caller unchanged. A failed begin is reported as ErrStoreUnavailable and a
// failed commit as ErrTransactionFailed, both inside a StoreError.
// A panic in fn rolls the transaction back and is re-raised.
func RunInTransaction(ctx context.Context, db TxBeginner, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn("failed to begin transaction", slog.String("error", err.Error()))
		return Unavailable("transaction", "begin", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		p := recover()
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.Any("cause", causeOf(err, p)))
		} else {
			log.Debug("rolled back transaction", slog.Any("cause", causeOf(err, p)))
		}
		if p != nil {
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if cErr := tx.Commit(); cErr != nil {
		// A failed commit has already ended the transaction.
		committed = true
		log.Error("failed to commit transaction", slog.String("error", cErr.Error()))
		return NewStoreError("transaction", "commit", "commit failed",
			fmt.Errorf("%w: %w", ErrTransactionFailed, cErr))
	}
	committed = true
	return nil
}

func causeOf(err error, panicValue any) any {
	if panicValue != nil {
		return panicValue
	}
	if err != nil {
		return err.Error()
	}
	return nil
}
