package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
	"github.com/phrazzld/verbdrill/internal/store"
)

const selectRecordSQL = `
	SELECT item_id, item_category, status, correct_count, incorrect_count,
	       interval_days, ease_factor, repetitions, last_reviewed_at, next_review_at
	FROM review_records
	WHERE namespace = $1`

const upsertRecordSQL = `
	INSERT INTO review_records (
		namespace, item_id, item_category, status, correct_count, incorrect_count,
		interval_days, ease_factor, repetitions, last_reviewed_at, next_review_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (namespace, item_id) DO UPDATE SET
		item_category    = EXCLUDED.item_category,
		status           = EXCLUDED.status,
		correct_count    = EXCLUDED.correct_count,
		incorrect_count  = EXCLUDED.incorrect_count,
		interval_days    = EXCLUDED.interval_days,
		ease_factor      = EXCLUDED.ease_factor,
		repetitions      = EXCLUDED.repetitions,
		last_reviewed_at = EXCLUDED.last_reviewed_at,
		next_review_at   = EXCLUDED.next_review_at,
		updated_at       = EXCLUDED.updated_at`

// PostgresRecordStore implements the store.RecordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRecordStore struct {
	db        *sql.DB
	namespace string
	logger    *slog.Logger
}

// NewPostgresRecordStore creates a new PostgreSQL implementation of the RecordStore interface,
// scoped to the anonymous namespace. The schema must already be migrated (see Open).
// If logger is nil, a default logger will be used.
func NewPostgresRecordStore(db *sql.DB, logger *slog.Logger) *PostgresRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "record_store")),
	}
}

// Ensure PostgresRecordStore implements store.RecordStore interface
var _ store.RecordStore = (*PostgresRecordStore)(nil)

// WithNamespace implements store.RecordStore.WithNamespace
func (s *PostgresRecordStore) WithNamespace(ns string) store.RecordStore {
	clone := *s
	clone.namespace = ns
	return &clone
}

// Ping implements store.Pinger
func (s *PostgresRecordStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Unavailable(store.EntityReviewRecord, "ping", err)
	}
	return nil
}

// Get implements store.RecordStore.Get
// Returns (nil, nil) if the item has no record in this namespace.
func (s *PostgresRecordStore) Get(ctx context.Context, itemID string) (*domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rec, err := getRecord(ctx, s.db, s.namespace, itemID, false)
	if err != nil {
		log.Error("failed to get review record",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return nil, s.wrap("get", err)
	}
	return rec, nil
}

// GetAll implements store.RecordStore.GetAll
func (s *PostgresRecordStore) GetAll(ctx context.Context) (map[string]domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, selectRecordSQL, s.namespace)
	if err != nil {
		log.Error("failed to list review records", slog.String("error", err.Error()))
		return nil, s.wrap("get_all", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	out := make(map[string]domain.ReviewRecord)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			log.Error("failed to scan review record", slog.String("error", err.Error()))
			return nil, s.wrap("get_all", err)
		}
		out[rec.ItemID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("get_all", err)
	}

	log.Debug("listed review records", slog.Int("count", len(out)))
	return out, nil
}

// Put implements store.RecordStore.Put
func (s *PostgresRecordStore) Put(ctx context.Context, rec *domain.ReviewRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := validate(rec); err != nil {
		log.Warn("review record validation failed during put", slog.String("error", err.Error()))
		return store.InvalidRecord(store.EntityReviewRecord, "put", err)
	}

	if err := putRecord(ctx, s.db, s.namespace, rec); err != nil {
		log.Error("failed to put review record",
			slog.String("item_id", rec.ItemID),
			slog.String("error", err.Error()))
		return s.wrap("put", err)
	}
	return nil
}

// Delete implements store.RecordStore.Delete
// Deleting an absent record is not an error.
func (s *PostgresRecordStore) Delete(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM review_records WHERE namespace = $1 AND item_id = $2`, s.namespace, itemID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete review record",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return s.wrap("delete", err)
	}
	return nil
}

// Update implements store.RecordStore.Update
// The current row is locked with SELECT ... FOR UPDATE for the duration of
// the transaction. A transaction-scoped advisory lock on the (namespace, item)
// pair covers first-time creation, when there is no row to lock yet.
func (s *PostgresRecordStore) Update(
	ctx context.Context,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewRecord, error) {
	var (
		result *domain.ReviewRecord
		fnErr  error
	)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Serializes first-time creation of the same item across transactions
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || $2::text))`, s.namespace, itemID); err != nil {
			return err
		}

		current, err := getRecord(ctx, tx, s.namespace, itemID, true)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		if err := validate(next); err != nil {
			return store.InvalidRecord(store.EntityReviewRecord, "update", err)
		}

		if err := putRecord(ctx, tx, s.namespace, next); err != nil {
			return err
		}
		out := *next
		result = &out
		return nil
	})
	if fnErr != nil && errors.Is(err, fnErr) {
		return nil, fnErr
	}
	if err != nil {
		return nil, s.wrap("update", err)
	}
	return result, nil
}

// wrap converts driver errors into store errors, keeping the cause.
func (s *PostgresRecordStore) wrap(op string, err error) error {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	mapped := MapError(err)
	if errors.Is(mapped, store.ErrStoreUnavailable) {
		return store.NewStoreError(store.EntityReviewRecord, op, "backend unreachable", mapped)
	}
	return store.NewStoreError(store.EntityReviewRecord, op, "database error", mapped)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.ReviewRecord, error) {
	var (
		rec            domain.ReviewRecord
		category       string
		status         string
		lastReviewedAt sql.NullTime
		nextReviewAt   sql.NullTime
	)
	if err := row.Scan(
		&rec.ItemID, &category, &status, &rec.CorrectCount, &rec.IncorrectCount,
		&rec.IntervalDays, &rec.EaseFactor, &rec.Repetitions, &lastReviewedAt, &nextReviewAt,
	); err != nil {
		return domain.ReviewRecord{}, err
	}

	rec.ItemCategory = domain.ItemCategory(category)
	rec.Status = domain.Status(status)
	if lastReviewedAt.Valid {
		rec.LastReviewedAt = lastReviewedAt.Time.UTC()
	}
	if nextReviewAt.Valid {
		rec.NextReviewAt = nextReviewAt.Time.UTC()
	}

	if err := rec.Validate(); err != nil {
		return domain.ReviewRecord{}, store.InvalidRecord(store.EntityReviewRecord, "scan", err)
	}
	return rec, nil
}

func getRecord(
	ctx context.Context,
	db store.DBTX,
	namespace, itemID string,
	forUpdate bool,
) (*domain.ReviewRecord, error) {
	query := selectRecordSQL + ` AND item_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rec, err := scanRecord(db.QueryRowContext(ctx, query, namespace, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func putRecord(ctx context.Context, db store.DBTX, namespace string, rec *domain.ReviewRecord) error {
	_, err := db.ExecContext(ctx, upsertRecordSQL,
		namespace,
		rec.ItemID,
		string(rec.ItemCategory),
		string(rec.Status),
		rec.CorrectCount,
		rec.IncorrectCount,
		rec.IntervalDays,
		rec.EaseFactor,
		rec.Repetitions,
		nullTime(rec.LastReviewedAt),
		nullTime(rec.NextReviewAt),
		time.Now().UTC(),
	)
	return err
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func validate(rec *domain.ReviewRecord) error {
	if rec == nil {
		return store.ErrInvalidRecord
	}
	return rec.Validate()
}
