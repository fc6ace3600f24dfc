package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/verbdrill/internal/config"
	"github.com/phrazzld/verbdrill/internal/platform/memory"
	"github.com/phrazzld/verbdrill/internal/platform/postgres"
	"github.com/phrazzld/verbdrill/internal/platform/redis"
	"github.com/phrazzld/verbdrill/internal/platform/sqlite"
	"github.com/phrazzld/verbdrill/internal/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the record store selected by cfg.Driver. The returned
// closer releases the underlying connection.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.RecordStore, io.Closer, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory record store; progress is lost on restart")
		return memory.NewRecordStore(logger), nopCloser{}, nil

	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewRecordStore(db, logger), db, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DSN, cfg.MaxConns, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewPostgresRecordStore(db, logger), db, nil

	case "redis":
		rdb, err := redis.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		opts := redis.Options{KeyPrefix: cfg.KeyPrefix}
		return redis.NewRecordStore(rdb, opts, logger), rdb, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
