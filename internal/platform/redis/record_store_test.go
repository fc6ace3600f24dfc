package redis_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/verbdrill/internal/ciutil"
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/platform/redis"
	"github.com/phrazzld/verbdrill/internal/store"
	"github.com/phrazzld/verbdrill/internal/store/storetest"
)

// connectTestRedis connects to the integration test redis.
func connectTestRedis(t *testing.T) *goredis.Client {
	t.Helper()

	addr := ciutil.TestRedisAddr(t)
	rdb, err := redis.Connect(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// newTestStore returns a store under a fresh key prefix and removes its
// keys when the test ends.
func newTestStore(t *testing.T, rdb *goredis.Client) *redis.RecordStore {
	t.Helper()

	prefix := "verbdrill-test-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
		for iter.Next(ctx) {
			_ = rdb.Del(ctx, iter.Val()).Err()
		}
	})
	return redis.NewRecordStore(rdb, redis.Options{KeyPrefix: prefix}, nil)
}

func TestRecordStore_Conformance(t *testing.T) {
	rdb := connectTestRedis(t)

	storetest.Run(t, func(t *testing.T) store.RecordStore {
		return newTestStore(t, rdb)
	})
}

func TestRecordStore_MalformedField(t *testing.T) {
	rdb := connectTestRedis(t)
	s := newTestStore(t, rdb)
	ctx := context.Background()

	require.NoError(t, rdb.HSet(ctx, s.Key(), "go", `{"itemId":"go"`).Err())

	_, err := s.Get(ctx, "go")
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	_, err = s.GetAll(ctx)
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
}

func TestRecordStore_StoresCanonicalJSON(t *testing.T) {
	rdb := connectTestRedis(t)
	s := newTestStore(t, rdb)
	ctx := context.Background()

	rec := storetest.NewRecord("go", domain.CategoryIrregular)
	require.NoError(t, s.Put(ctx, &rec))

	raw, err := rdb.HGet(ctx, s.Key(), "go").Bytes()
	require.NoError(t, err)
	decoded, err := domain.DecodeRecord(raw)
	require.NoError(t, err)
	storetest.AssertRecordEqual(t, rec, decoded)
}

func TestRecordStore_UpdateRetriesOnlyOnSameItemWrites(t *testing.T) {
	rdb := connectTestRedis(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		interfere string
		wantCalls int
	}{
		{name: "write to another item", interfere: "see", wantCalls: 1},
		{name: "write to the same item", interfere: "go", wantCalls: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, rdb)

			calls := 0
			got, err := s.Update(ctx, "go", func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
				calls++
				if calls == 1 {
					other := storetest.NewRecord(tt.interfere, domain.CategoryIrregular)
					require.NoError(t, s.Put(ctx, &other))
				}
				next := storetest.NewRecord("go", domain.CategoryIrregular)
				next.CorrectCount = 7
				return &next, nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, 7, got.CorrectCount)

			stored, err := s.Get(ctx, "go")
			require.NoError(t, err)
			assert.Equal(t, 7, stored.CorrectCount)
		})
	}
}

func TestRecordStore_UpdateGivesUpAfterMaxAttempts(t *testing.T) {
	rdb := connectTestRedis(t)
	ctx := context.Background()

	prefix := "verbdrill-test-" + uuid.NewString()
	t.Cleanup(func() { _ = rdb.Del(ctx, prefix+":records:").Err() })
	s := redis.NewRecordStore(rdb, redis.Options{KeyPrefix: prefix, MaxAttempts: 3}, nil)

	calls := 0
	_, err := s.Update(ctx, "go", func(*domain.ReviewRecord) (*domain.ReviewRecord, error) {
		calls++
		interfering := storetest.NewRecord("go", domain.CategoryIrregular)
		interfering.CorrectCount = calls
		require.NoError(t, s.Put(ctx, &interfering))

		next := storetest.NewRecord("go", domain.CategoryIrregular)
		return &next, nil
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestRecordStore_Unavailable(t *testing.T) {
	t.Parallel()

	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	require.NoError(t, rdb.Close())
	s := redis.NewRecordStore(rdb, redis.Options{}, nil)

	_, err := s.Get(context.Background(), "go")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrStoreUnavailable)
}

func TestRecordStore_Key(t *testing.T) {
	t.Parallel()

	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })

	tests := []struct {
		name      string
		prefix    string
		namespace string
		want      string
	}{
		{name: "default prefix, anonymous", want: "verbdrill:records:"},
		{name: "custom prefix", prefix: "app", namespace: "alice", want: "app:records:alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := redis.NewRecordStore(rdb, redis.Options{KeyPrefix: tt.prefix}, nil)
			got := s.WithNamespace(tt.namespace).(*redis.RecordStore).Key()
			assert.Equal(t, tt.want, got)
		})
	}
}
