// Package sqlite implements store.RecordStore on an embedded SQLite
// database, for single-node deployments that need durable local progress.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/verbdrill/internal/platform/migrate"
	"github.com/pressly/goose/v3"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open opens (creating if needed) the database at path and applies the
// schema migrations. SQLite allows a single writer, so the pool is limited
// to one connection.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate.Up(ctx, db.DB, goose.DialectSQLite3, fsys, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
