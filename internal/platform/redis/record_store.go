package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
	"github.com/phrazzld/verbdrill/internal/store"
)

// DefaultMaxAttempts bounds optimistic retries in Update.
const DefaultMaxAttempts = 10

// Options configures a RecordStore.
type Options struct {
	// KeyPrefix is prepended to every key. Defaults to "verbdrill".
	KeyPrefix string
	// MaxAttempts bounds Update retries. Defaults to DefaultMaxAttempts.
	MaxAttempts int
}

// RecordStore implements store.RecordStore using Redis hashes.
type RecordStore struct {
	rdb         goredis.UniversalClient
	prefix      string
	namespace   string
	maxAttempts int
	logger      *slog.Logger
}

// NewRecordStore creates a Redis implementation of the RecordStore interface
// scoped to the anonymous namespace. If logger is nil, a default logger will be used.
func NewRecordStore(rdb goredis.UniversalClient, opts Options, logger *slog.Logger) *RecordStore {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "verbdrill"
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &RecordStore{
		rdb:         rdb,
		prefix:      opts.KeyPrefix,
		maxAttempts: opts.MaxAttempts,
		logger:      logger.With(slog.String("component", "redis_record_store")),
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

// Key returns the hash key holding the records of the store's namespace.
func (s *RecordStore) Key() string {
	return s.prefix + ":records:" + s.namespace
}

// Ping implements store.Pinger.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return store.Unavailable(store.EntityReviewRecord, "ping", err)
	}
	return nil
}

// Get implements store.RecordStore.Get.
func (s *RecordStore) Get(ctx context.Context, itemID string) (*domain.ReviewRecord, error) {
	raw, err := s.rdb.HGet(ctx, s.Key(), itemID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.mapError(ctx, "get", err)
	}

	rec, err := domain.DecodeRecord(raw)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("stored record is malformed",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return nil, store.InvalidRecord(store.EntityReviewRecord, "get", err)
	}
	return &rec, nil
}

// GetAll implements store.RecordStore.GetAll.
func (s *RecordStore) GetAll(ctx context.Context) (map[string]domain.ReviewRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, s.Key()).Result()
	if err != nil {
		return nil, s.mapError(ctx, "get_all", err)
	}

	out := make(map[string]domain.ReviewRecord, len(fields))
	for itemID, raw := range fields {
		rec, err := domain.DecodeRecord([]byte(raw))
		if err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Error("stored record is malformed",
				slog.String("item_id", itemID),
				slog.String("error", err.Error()))
			return nil, store.InvalidRecord(store.EntityReviewRecord, "get_all", err)
		}
		out[rec.ItemID] = rec
	}
	return out, nil
}

// Put implements store.RecordStore.Put.
func (s *RecordStore) Put(ctx context.Context, rec *domain.ReviewRecord) error {
	raw, err := encode(rec)
	if err != nil {
		return store.InvalidRecord(store.EntityReviewRecord, "put", err)
	}
	if err := s.rdb.HSet(ctx, s.Key(), rec.ItemID, raw).Err(); err != nil {
		return s.mapError(ctx, "put", err)
	}
	return nil
}

// Delete implements store.RecordStore.Delete.
func (s *RecordStore) Delete(ctx context.Context, itemID string) error {
	if err := s.rdb.HDel(ctx, s.Key(), itemID).Err(); err != nil {
		return s.mapError(ctx, "delete", err)
	}
	return nil
}

// compareAndSet writes ARGV[3] to field ARGV[1] of KEYS[1] only while the
// field still holds ARGV[2]. An empty ARGV[2] expects the field to be absent.
// It returns 1 when the write happened and 0 when the field had moved on.
var compareAndSet = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur == false then cur = '' end
if cur ~= ARGV[2] then return 0 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
return 1
`)

// Update implements store.RecordStore.Update as an optimistic read followed
// by a compare-and-set of the item's field. Only a concurrent write to the
// same item forces fn to run again; after the configured number of attempts
// store.ErrConflict is returned.
func (s *RecordStore) Update(
	ctx context.Context,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewRecord, error) {
	key := s.Key()
	log := logger.FromContextOrDefault(ctx, s.logger)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		raw, err := s.rdb.HGet(ctx, key, itemID).Bytes()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, s.mapError(ctx, "update", err)
		}

		var current *domain.ReviewRecord
		if raw != nil {
			rec, err := domain.DecodeRecord(raw)
			if err != nil {
				return nil, store.InvalidRecord(store.EntityReviewRecord, "update", err)
			}
			current = &rec
		}

		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return current, nil
		}
		encoded, err := encode(next)
		if err != nil {
			return nil, store.InvalidRecord(store.EntityReviewRecord, "update", err)
		}

		swapped, err := compareAndSet.Run(ctx, s.rdb, []string{key}, itemID, string(raw), string(encoded)).Int()
		if err != nil {
			return nil, s.mapError(ctx, "update", err)
		}
		if swapped == 1 {
			out := *next
			return &out, nil
		}
		log.Debug("optimistic update lost race, retrying",
			slog.String("item_id", itemID),
			slog.Int("attempt", attempt))
	}

	log.Warn("optimistic update exhausted retries",
		slog.String("item_id", itemID),
		slog.Int("attempts", s.maxAttempts))
	return nil, store.NewStoreError(store.EntityReviewRecord, "update",
		fmt.Sprintf("gave up after %d attempts", s.maxAttempts), store.ErrConflict)
}

func (s *RecordStore) mapError(ctx context.Context, op string, err error) error {
	logger.FromContextOrDefault(ctx, s.logger).Error("redis operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))

	if isConnectionError(err) {
		return store.Unavailable(store.EntityReviewRecord, op, err)
	}
	return store.NewStoreError(store.EntityReviewRecord, op, "redis error", err)
}

// isConnectionError reports whether err means Redis could not be reached.
func isConnectionError(err error) bool {
	if errors.Is(err, goredis.ErrClosed) || errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func encode(rec *domain.ReviewRecord) ([]byte, error) {
	if rec == nil {
		return nil, store.ErrInvalidRecord
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}
