package inventory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pintubaloda/Sitesellr-sub000/internal/inventory"
)

func TestMemoryLedgerPutTake(t *testing.T) {
	l := inventory.NewMemoryLedger()
	ctx := context.Background()

	holds := []inventory.Hold{{VariantID: "v1", Quantity: 2}, {VariantID: "v2", Quantity: 1}}
	require.NoError(t, l.Put(ctx, "res-1", holds))

	got, ok, err := l.Take(ctx, "res-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, holds, got)

	// The entry is consumed.
	_, ok, err = l.Take(ctx, "res-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Take(ctx, "never-stored")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLedgerConcurrentTakeConsumesOnce(t *testing.T) {
	l := inventory.NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Put(ctx, "res-1", []inventory.Hold{{VariantID: "v1", Quantity: 1}}))

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := l.Take(ctx, "res-1"); ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins)
}

func newRedisLedger(t *testing.T, ttl time.Duration) (*inventory.RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return inventory.NewRedisLedger(client, ttl), mr
}

func TestRedisLedgerPutTake(t *testing.T) {
	l, _ := newRedisLedger(t, 0)
	ctx := context.Background()

	holds := []inventory.Hold{{VariantID: "v1", Quantity: 2}, {VariantID: "v2", Quantity: 1}}
	require.NoError(t, l.Put(ctx, "res-1", holds))

	got, ok, err := l.Take(ctx, "res-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, holds, got)

	// The read-and-delete script consumed the key.
	_, ok, err = l.Take(ctx, "res-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLedgerUnknownID(t *testing.T) {
	l, _ := newRedisLedger(t, 0)

	_, ok, err := l.Take(context.Background(), "never-stored")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLedgerEntriesExpire(t *testing.T) {
	l, mr := newRedisLedger(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "res-1", []inventory.Hold{{VariantID: "v1", Quantity: 1}}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := l.Take(ctx, "res-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
