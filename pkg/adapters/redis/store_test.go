package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/quadrat/pkg/adapters/redis"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunResultStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	runID := "run-ttl"

	err := store.Append(ctx, runID, domain.Result{
		domain.FieldTrialType: "text",
		"response":            "space",
	})
	assert.NoError(t, err)

	runs, err := store.Runs(ctx)
	assert.NoError(t, err)
	assert.Contains(t, runs, runID)

	// Fast forward past the TTL so the list key expires.
	mr.FastForward(2 * time.Second)

	_, err = store.List(ctx, runID)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	// Index pruning relies on time.Now() reaching the stored score.
	time.Sleep(1200 * time.Millisecond)

	runs, err = store.Runs(ctx)
	assert.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRedisStore_AppendOrderSurvivesRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Append(ctx, "run-order", domain.Result{
			domain.FieldTrialIndex: i,
		})
		require.NoError(t, err)
	}

	recs, err := store.List(ctx, "run-order")
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for i, rec := range recs {
		// JSON numbers decode as float64.
		assert.EqualValues(t, i, rec[domain.FieldTrialIndex])
	}
}
