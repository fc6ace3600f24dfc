package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	t.Parallel()

	errFn := errors.New("quality out of range")
	errDriver := errors.New("connection reset by peer")

	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		fn     TxFn
		check  func(t *testing.T, err error)
	}{
		{
			name: "commit",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE review_records").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, "UPDATE review_records SET status = 'learning'")
				return err
			},
			check: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name: "callback error is returned unchanged",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn: func(context.Context, *sql.Tx) error { return errFn },
			check: func(t *testing.T, err error) {
				assert.Same(t, errFn, err)
			},
		},
		{
			name: "callback error survives a failed rollback",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(errDriver)
			},
			fn: func(context.Context, *sql.Tx) error { return errFn },
			check: func(t *testing.T, err error) {
				assert.Same(t, errFn, err)
			},
		},
		{
			name: "begin failure means unavailable",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errDriver)
			},
			fn: func(context.Context, *sql.Tx) error { return errFn },
			check: func(t *testing.T, err error) {
				assert.NotErrorIs(t, err, errFn)
				assert.ErrorIs(t, err, ErrStoreUnavailable)
				assert.ErrorIs(t, err, errDriver)
			},
		},
		{
			name: "commit failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(errDriver)
			},
			fn: func(context.Context, *sql.Tx) error { return nil },
			check: func(t *testing.T, err error) {
				var storeErr *StoreError
				require.ErrorAs(t, err, &storeErr)
				assert.Equal(t, "commit", storeErr.Operation)
				assert.ErrorIs(t, err, ErrTransactionFailed)
				assert.ErrorIs(t, err, errDriver)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.expect(mock)
			tt.check(t, RunInTransaction(context.Background(), db, tt.fn))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTransaction_PanicRollsBack(t *testing.T) {
	t.Parallel()

	for _, rollbackErr := range []error{nil, errors.New("rollback failed")} {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(rollbackErr)

		assert.PanicsWithValue(t, "scheduler bug", func() {
			_ = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error {
				panic("scheduler bug")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	}
}
