// Package migrate applies embedded goose migrations for the SQL record
// stores.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
)

// Up applies every pending migration found in fsys. fsys must contain the
// migration files at its root.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "migrate"), slog.String("dialect", string(dialect)))

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	log.Debug("current schema version", slog.Int64("version", current))

	start := time.Now()
	results, err := provider.Up(ctx)
	if err != nil {
		log.Error("migration failed", slog.String("error", err.Error()))
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		log.Info("applied migration",
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			slog.Duration("duration", r.Duration))
	}
	log.Info("schema up to date",
		slog.Int("applied", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}
