package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/verbdrill/internal/store"
)

// PostgreSQL error codes
const (
	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"

	// serializationFailureCode is raised when concurrent transactions conflict
	serializationFailureCode = "40001"

	// deadlockDetectedCode is raised when the server breaks a lock cycle
	deadlockDetectedCode = "40P01"

	// adminShutdownCode and cannotConnectNowCode are raised while the server
	// is shutting down or starting up
	adminShutdownCode    = "57P01"
	cannotConnectNowCode = "57P03"
)

// MapError maps a database error to an appropriate store error.
// It wraps the original error to preserve context and provide better debugging information.
// This function should be used in all database operations to ensure consistent error handling.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case checkViolationCode:
			return fmt.Errorf(
				"%w: check constraint violation (%s): %v",
				store.ErrInvalidRecord,
				pgErr.ConstraintName,
				err,
			)
		case notNullViolationCode:
			return fmt.Errorf(
				"%w: not null violation (%s): %v",
				store.ErrInvalidRecord,
				pgErr.ColumnName,
				err,
			)
		case serializationFailureCode, deadlockDetectedCode:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		case adminShutdownCode, cannotConnectNowCode:
			return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}
		return err
	}

	if IsConnectionError(err) {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	return err
}

// IsConnectionError reports whether err means the server could not be
// reached or the connection was lost.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsCheckConstraintViolation checks if the given error is a PostgreSQL check constraint violation.
// This occurs when an operation would violate a CHECK constraint on a table.
func IsCheckConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == checkViolationCode
}
