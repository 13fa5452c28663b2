package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/clearing/internal/outcome"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, NewRedisStore(client)
}

func stores(t *testing.T) map[string]Store {
	_, rs := setupRedis(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestReserveOnceThenDuplicate(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			guard := NewGuard(store, time.Hour)

			res, rec, err := guard.Reserve(ctx, "tx-1", "run-1")
			require.NoError(t, err)
			assert.Equal(t, outcome.Reserved, res)
			assert.Equal(t, StatusInProgress, rec.Status)
			assert.WithinDuration(t, rec.CreatedAt.Add(time.Hour), rec.ExpiresAt, time.Second)

			for i := 0; i < 3; i++ {
				res, prior, err := guard.Reserve(ctx, "tx-1", "run-2")
				require.NoError(t, err)
				assert.Equal(t, outcome.Duplicate, res)
				assert.Equal(t, "tx-1", prior.TransactionID)
				assert.Equal(t, StatusInProgress, prior.Status)
			}
		})
	}
}

func TestReserveRejectsEmptyKeyBeforeStoreAccess(t *testing.T) {
	guard := NewGuard(nil, 0)
	res, _, err := guard.Reserve(context.Background(), "", "run-3")
	assert.Equal(t, outcome.InvalidRequest, res)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestResolveReportsPriorOutcome(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			guard := NewGuard(store, time.Hour)

			_, _, err := guard.Reserve(ctx, "tx-2", "run-4")
			require.NoError(t, err)
			require.NoError(t, guard.Resolve(ctx, "tx-2", StatusCompleted, "COMPLETED"))

			res, prior, err := guard.Reserve(ctx, "tx-2", "run-5")
			require.NoError(t, err)
			assert.Equal(t, outcome.Duplicate, res)
			assert.Equal(t, StatusCompleted, prior.Status)
			assert.Equal(t, "COMPLETED", prior.Outcome)

			looked, err := guard.Lookup(ctx, "tx-2")
			require.NoError(t, err)
			assert.Equal(t, prior, looked)
		})
	}
}

func TestResolveUnknownKey(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := NewGuard(store, time.Hour).Resolve(context.Background(), "nope", StatusFailed, "FAILED")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestConcurrentReserveAdmitsExactlyOne(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			guard := NewGuard(store, time.Hour)
			var (
				wg       sync.WaitGroup
				reserved atomic.Int32
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, _, err := guard.Reserve(context.Background(), "tx-race", fmt.Sprintf("run-%d", i))
					if err != nil {
						t.Errorf("reserve: %v", err)
						return
					}
					if res == outcome.Reserved {
						reserved.Add(1)
					}
				}(i)
			}
			wg.Wait()
			assert.Equal(t, int32(1), reserved.Load())
		})
	}
}

func TestRedisRecordExpires(t *testing.T) {
	mr, store := setupRedis(t)
	guard := NewGuard(store, time.Minute)
	ctx := context.Background()

	res, _, err := guard.Reserve(ctx, "tx-ttl", "run-7")
	require.NoError(t, err)
	require.Equal(t, outcome.Reserved, res)
	require.NoError(t, guard.Resolve(ctx, "tx-ttl", StatusCompleted, "COMPLETED"))
	assert.True(t, mr.TTL(keyPrefix+"tx-ttl") > 0, "resolve must keep the ttl")

	mr.FastForward(2 * time.Minute)
	_, err = guard.Lookup(ctx, "tx-ttl")
	assert.ErrorIs(t, err, ErrNotFound)

	res, _, err = guard.Reserve(ctx, "tx-ttl", "run-8")
	require.NoError(t, err)
	assert.Equal(t, outcome.Reserved, res)
}

func TestMemoryRecordExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore(func() time.Time { return now })
	guard := NewGuard(store, time.Hour)
	guard.now = func() time.Time { return now }

	res, _, _ := guard.Reserve(context.Background(), "tx-ttl", "run-9")
	require.Equal(t, outcome.Reserved, res)

	now = now.Add(61 * time.Minute)
	res, _, _ = guard.Reserve(context.Background(), "tx-ttl", "run-10")
	assert.Equal(t, outcome.Reserved, res)
}

func TestRedisFailureIsTransient(t *testing.T) {
	mr, store := setupRedis(t)
	mr.SetError("ERR injected failure")

	res, _, err := NewGuard(store, time.Hour).Reserve(context.Background(), "tx-3", "run-11")
	assert.Equal(t, outcome.Transient, res)
	assert.Error(t, err)
}

type flakyStore struct {
	Store
	err error
}

func (f flakyStore) InsertIfAbsent(context.Context, Record) (bool, error) { return false, f.err }

func TestStoreErrorsAreSurfaced(t *testing.T) {
	boom := errors.New("throughput exceeded")
	res, _, err := NewGuard(flakyStore{err: boom}, time.Hour).Reserve(context.Background(), "tx-4", "run-12")
	assert.Equal(t, outcome.Transient, res)
	assert.True(t, errors.Is(err, boom), fmt.Sprint(err))
}

func TestReserveReclaimsOwnInsert(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			guard := NewGuard(store, time.Hour)

			res, rec, err := guard.Reserve(ctx, "tx-own", "run-a")
			require.NoError(t, err)
			require.Equal(t, outcome.Reserved, res)
			assert.Equal(t, "run-a", rec.Owner)

			res, again, err := guard.Reserve(ctx, "tx-own", "run-a")
			require.NoError(t, err)
			assert.Equal(t, outcome.Reserved, res)
			assert.Equal(t, rec.CreatedAt.Unix(), again.CreatedAt.Unix())

			res, _, err = guard.Reserve(ctx, "tx-own", "run-b")
			require.NoError(t, err)
			assert.Equal(t, outcome.Duplicate, res)

			require.NoError(t, guard.Resolve(ctx, "tx-own", StatusFailed, "FAILED"))
			res, prior, err := guard.Reserve(ctx, "tx-own", "run-a")
			require.NoError(t, err)
			assert.Equal(t, outcome.Duplicate, res, "a resolved record is never reclaimed")
			assert.Equal(t, StatusFailed, prior.Status)
		})
	}
}

func TestReserveWithoutOwnerNeverReclaims(t *testing.T) {
	guard := NewGuard(NewMemoryStore(), time.Hour)
	ctx := context.Background()

	res, _, err := guard.Reserve(ctx, "tx-anon", "")
	require.NoError(t, err)
	require.Equal(t, outcome.Reserved, res)

	res, _, err = guard.Reserve(ctx, "tx-anon", "")
	require.NoError(t, err)
	assert.Equal(t, outcome.Duplicate, res)
}

func TestMemoryStoreDropsExpiredRecords(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	for _, id := range []string{"tx-a", "tx-b"} {
		inserted, err := store.InsertIfAbsent(ctx, Record{TransactionID: id, Status: StatusInProgress, ExpiresAt: now.Add(time.Minute)})
		require.NoError(t, err)
		require.True(t, inserted)
	}
	require.Len(t, store.records, 2)

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "tx-a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, store.records, "tx-a")

	inserted, err := store.InsertIfAbsent(ctx, Record{TransactionID: "tx-b", Status: StatusInProgress, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Len(t, store.records, 1)
}
