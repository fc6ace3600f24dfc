// Package postgres provides the PostgreSQL implementation of
// store.RecordStore. It handles connection setup through the pgx stdlib
// driver, embedded schema migrations, query execution and the mapping of
// PostgreSQL errors onto store errors.
package postgres
