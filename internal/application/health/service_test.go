package health

import (
	"context"
	"errors"
	"testing"

	"rics-valuation/internal/infrastructure/kvstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Ping(context.Context) error { return errors.New("down") }

func TestCollectHealth_NoDependencies(t *testing.T) {
	result := CollectHealth(context.Background(), nil, nil, "")
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, StatusDisconnected, result.Dependencies["store"].Status)
	assert.Equal(t, StatusNotConfigured, result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
}

func TestCollectHealth_MemoryStoreWithoutRedis(t *testing.T) {
	result := CollectHealth(context.Background(), nil, kvstore.NewMemory(0), kvstore.BackendMemory)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, StatusConnected, result.Dependencies["store"].Status)
	assert.Equal(t, kvstore.BackendMemory, result.Dependencies["store"].Backend)
	assert.NotEmpty(t, result.Runtime.Memory.Alloc)
}

func TestCollectHealth_StoreError(t *testing.T) {
	result := CollectHealth(context.Background(), nil, failingStore{}, kvstore.BackendSQLite)
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, StatusError, result.Dependencies["store"].Status)
}

func TestCollectHealth_WithMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()
	store := kvstore.NewRedis(rdb, 0)

	result := CollectHealth(ctx, rdb, store, kvstore.BackendRedis)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, StatusConnected, result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
	assert.Equal(t, "100", result.Traffic.SuccessRate)

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_errors", "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_time_total", "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_count", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:start_time", "1000000", 0).Err())

	result2 := CollectHealth(ctx, rdb, store, kvstore.BackendRedis)
	assert.Equal(t, 10, result2.Traffic.TotalRequests)
	assert.Equal(t, 2, result2.Traffic.FailedCount)
	assert.Equal(t, 8, result2.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result2.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result2.Traffic.AvgResponseTime)
}
