package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
	"github.com/phrazzld/verbdrill/internal/store"
)

// pingTimeout bounds the health check mapError runs after a failed query.
const pingTimeout = 2 * time.Second

const recordColumns = `item_id, item_category, status, correct_count, incorrect_count,
	interval_days, ease_factor, repetitions, last_reviewed_at, next_review_at`

const upsertRecordSQL = `
	INSERT INTO review_records (namespace, ` + recordColumns + `, updated_at)
	VALUES (:namespace, :item_id, :item_category, :status, :correct_count, :incorrect_count,
		:interval_days, :ease_factor, :repetitions, :last_reviewed_at, :next_review_at, :updated_at)
	ON CONFLICT (namespace, item_id) DO UPDATE SET
		item_category    = excluded.item_category,
		status           = excluded.status,
		correct_count    = excluded.correct_count,
		incorrect_count  = excluded.incorrect_count,
		interval_days    = excluded.interval_days,
		ease_factor      = excluded.ease_factor,
		repetitions      = excluded.repetitions,
		last_reviewed_at = excluded.last_reviewed_at,
		next_review_at   = excluded.next_review_at,
		updated_at       = excluded.updated_at`

// recordRow is the column layout of review_records. Timestamps are stored
// as RFC 3339 text in UTC, which also sorts chronologically.
type recordRow struct {
	Namespace      string         `db:"namespace"`
	ItemID         string         `db:"item_id"`
	ItemCategory   string         `db:"item_category"`
	Status         string         `db:"status"`
	CorrectCount   int            `db:"correct_count"`
	IncorrectCount int            `db:"incorrect_count"`
	IntervalDays   int            `db:"interval_days"`
	EaseFactor     float64        `db:"ease_factor"`
	Repetitions    int            `db:"repetitions"`
	LastReviewedAt sql.NullString `db:"last_reviewed_at"`
	NextReviewAt   sql.NullString `db:"next_review_at"`
	UpdatedAt      string         `db:"updated_at"`
}

func toRow(ns string, rec *domain.ReviewRecord, now time.Time) recordRow {
	return recordRow{
		Namespace:      ns,
		ItemID:         rec.ItemID,
		ItemCategory:   string(rec.ItemCategory),
		Status:         string(rec.Status),
		CorrectCount:   rec.CorrectCount,
		IncorrectCount: rec.IncorrectCount,
		IntervalDays:   rec.IntervalDays,
		EaseFactor:     rec.EaseFactor,
		Repetitions:    rec.Repetitions,
		LastReviewedAt: formatTime(rec.LastReviewedAt),
		NextReviewAt:   formatTime(rec.NextReviewAt),
		UpdatedAt:      now.UTC().Format(time.RFC3339Nano),
	}
}

func (r recordRow) toRecord() (domain.ReviewRecord, error) {
	rec := domain.ReviewRecord{
		ItemID:         r.ItemID,
		ItemCategory:   domain.ItemCategory(r.ItemCategory),
		Status:         domain.Status(r.Status),
		CorrectCount:   r.CorrectCount,
		IncorrectCount: r.IncorrectCount,
		IntervalDays:   r.IntervalDays,
		EaseFactor:     r.EaseFactor,
		Repetitions:    r.Repetitions,
	}

	var err error
	if rec.LastReviewedAt, err = parseTime(r.LastReviewedAt); err != nil {
		return domain.ReviewRecord{}, err
	}
	if rec.NextReviewAt, err = parseTime(r.NextReviewAt); err != nil {
		return domain.ReviewRecord{}, err
	}
	if err := rec.Validate(); err != nil {
		return domain.ReviewRecord{}, err
	}
	return rec, nil
}

// scanTargets returns pointers to the recordColumns fields, in order.
func (r *recordRow) scanTargets() []any {
	return []any{
		&r.ItemID, &r.ItemCategory, &r.Status, &r.CorrectCount, &r.IncorrectCount,
		&r.IntervalDays, &r.EaseFactor, &r.Repetitions, &r.LastReviewedAt, &r.NextReviewAt,
	}
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", domain.ErrInvalidFormat, s.String, err)
	}
	return t, nil
}

// RecordStore implements the store.RecordStore interface using SQLite.
type RecordStore struct {
	db        *sqlx.DB
	namespace string
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecordStore creates a SQLite implementation of the RecordStore interface
// scoped to the anonymous namespace. db must come from Open.
// If logger is nil, a default logger will be used.
func NewRecordStore(db *sqlx.DB, logger *slog.Logger) *RecordStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_record_store")),
		now:    time.Now,
	}
}

// Ensure RecordStore implements store.RecordStore interface
var _ store.RecordStore = (*RecordStore)(nil)

// WithNamespace implements store.RecordStore.WithNamespace.
func (s *RecordStore) WithNamespace(ns string) store.RecordStore {
	clone := *s
	clone.namespace = ns
	return &clone
}

// Ping implements store.Pinger.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Unavailable(store.EntityReviewRecord, "ping", err)
	}
	return nil
}

// Get implements store.RecordStore.Get.
func (s *RecordStore) Get(ctx context.Context, itemID string) (*domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var row recordRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+recordColumns+` FROM review_records WHERE namespace = ? AND item_id = ?`,
		s.namespace, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get review record",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return nil, s.mapError(ctx, "get", err)
	}

	rec, err := row.toRecord()
	if err != nil {
		log.Error("stored record is malformed",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return nil, store.InvalidRecord(store.EntityReviewRecord, "get", err)
	}
	return &rec, nil
}

// GetAll implements store.RecordStore.GetAll.
func (s *RecordStore) GetAll(ctx context.Context) (map[string]domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+recordColumns+` FROM review_records WHERE namespace = ?`, s.namespace)
	if err != nil {
		log.Error("failed to list review records", slog.String("error", err.Error()))
		return nil, s.mapError(ctx, "get_all", err)
	}

	out := make(map[string]domain.ReviewRecord, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			log.Error("stored record is malformed",
				slog.String("item_id", row.ItemID),
				slog.String("error", err.Error()))
			return nil, store.InvalidRecord(store.EntityReviewRecord, "get_all", err)
		}
		out[rec.ItemID] = rec
	}
	return out, nil
}

// Put implements store.RecordStore.Put.
func (s *RecordStore) Put(ctx context.Context, rec *domain.ReviewRecord) error {
	if err := validate(rec); err != nil {
		return store.InvalidRecord(store.EntityReviewRecord, "put", err)
	}

	if _, err := s.db.NamedExecContext(ctx, upsertRecordSQL, toRow(s.namespace, rec, s.now())); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to put review record",
			slog.String("item_id", rec.ItemID),
			slog.String("error", err.Error()))
		return s.mapError(ctx, "put", err)
	}
	return nil
}

// Delete implements store.RecordStore.Delete.
func (s *RecordStore) Delete(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM review_records WHERE namespace = ? AND item_id = ?`, s.namespace, itemID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete review record",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return s.mapError(ctx, "delete", err)
	}
	return nil
}

// Update implements store.RecordStore.Update. The single pooled connection
// serializes transactions, so the read and the write cannot interleave with
// another writer.
func (s *RecordStore) Update(
	ctx context.Context,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewRecord, error) {
	var result *domain.ReviewRecord

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var current *domain.ReviewRecord

		var row recordRow
		err := tx.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM review_records WHERE namespace = ? AND item_id = ?`,
			s.namespace, itemID).Scan(row.scanTargets()...)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return mapTxError(ctx, "update", err)
		default:
			rec, err := row.toRecord()
			if err != nil {
				return store.InvalidRecord(store.EntityReviewRecord, "update", err)
			}
			current = &rec
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		if err := validate(next); err != nil {
			return store.InvalidRecord(store.EntityReviewRecord, "update", err)
		}

		query, args, err := sqlx.Named(upsertRecordSQL, toRow(s.namespace, next, s.now()))
		if err != nil {
			return fmt.Errorf("failed to bind upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapTxError(ctx, "update", err)
		}

		out := *next
		result = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mapError classifies a failed pool operation. database/sql does not export
// its closed-pool error, so a ping separates a dead database from a bad
// statement.
func (s *RecordStore) mapError(ctx context.Context, op string, err error) error {
	if !interrupted(ctx, err) {
		pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
		defer cancel()
		if s.db.PingContext(pingCtx) == nil {
			return store.NewStoreError(store.EntityReviewRecord, op, "database error", err)
		}
	}
	return store.Unavailable(store.EntityReviewRecord, op, err)
}

// mapTxError classifies a failure inside a transaction. The transaction holds
// the only pooled connection, so it cannot ping.
func mapTxError(ctx context.Context, op string, err error) error {
	if interrupted(ctx, err) {
		return store.Unavailable(store.EntityReviewRecord, op, err)
	}
	return store.NewStoreError(store.EntityReviewRecord, op, "database error", err)
}

func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func validate(rec *domain.ReviewRecord) error {
	if rec == nil {
		return store.ErrInvalidRecord
	}
	return rec.Validate()
}
