package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/infrastructure/kvstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ricsValuationReports"

// countingKV records how many writes reach the backend.
type countingKV struct {
	kvstore.Store
	sets int
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	return c.Store.Set(ctx, key, value, ttl)
}

func setupStoreTest(t *testing.T, quota int) (*Store, *countingKV) {
	kv := &countingKV{Store: kvstore.NewMemory(quota)}
	s := NewStore(kv, testKey)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }
	seq := 0
	s.NewID = func() string {
		seq++
		return fmt.Sprintf("val_test_%d", seq)
	}
	s.Location = time.UTC
	return s, kv
}

func seedRaw(t *testing.T, kv kvstore.Store, raw string) {
	require.NoError(t, kv.Set(context.Background(), testKey, []byte(raw), 0))
}

func TestLoadAll_AbsentIsEmpty(t *testing.T) {
	s, _ := setupStoreTest(t, 0)
	recs := s.LoadAll(context.Background())
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestLoadAll_UnparseableIsEmpty(t *testing.T) {
	s, kv := setupStoreTest(t, 0)
	seedRaw(t, kv, `{not json`)
	assert.Empty(t, s.LoadAll(context.Background()))
}

func TestMigrate_IsIdempotent(t *testing.T) {
	s, kv := setupStoreTest(t, 0)
	seedRaw(t, kv, `[
		{"id": "val_1", "status": "draft"},
		{"status": "completed"},
		{"id": "val_3", "status": "archive"}
	]`)
	ctx := context.Background()
	writesBefore := kv.sets

	recs, err := s.Migrate(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "val_test_1", recs[1].ID)
	assert.Equal(t, domain.StatusWorking, recs[0].Status)
	assert.Equal(t, domain.StatusComplete, recs[1].Status)
	assert.Equal(t, 2, kv.sets-writesBefore)

	stored := s.LoadAll(ctx)
	require.Len(t, stored, 3)
	assert.Equal(t, "val_test_1", stored[1].ID)

	writesBefore = kv.sets
	again, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, kv.sets-writesBefore)
	assert.Equal(t, recs[1].ID, again[1].ID)
	assert.Equal(t, stored, again)
}

func TestMigrateMissingIDs_NoChangeNoWrite(t *testing.T) {
	s, kv := setupStoreTest(t, 0)
	n, err := s.MigrateMissingIDs(context.Background(), []*domain.ValuationRecord{{ID: "val_a"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, kv.sets)
}

func TestUpsert_ReplaceAndAppend(t *testing.T) {
	s, _ := setupStoreTest(t, 0)
	ctx := context.Background()
	a := domain.NewRecord(time.Time{})
	b := domain.NewRecord(time.Time{})

	require.NoError(t, s.Upsert(ctx, a))
	require.NoError(t, s.Upsert(ctx, b))
	assert.Len(t, s.LoadAll(ctx), 2)

	a.Property.Address = "10 Downing Street"
	require.NoError(t, s.Upsert(ctx, a))
	all := s.LoadAll(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, "10 Downing Street", all[0].Property.Address)
	assert.Equal(t, s.Now(), a.UpdatedAt)
}

func TestUpsert_StoresDetachedCopy(t *testing.T) {
	s, _ := setupStoreTest(t, 0)
	ctx := context.Background()
	r := domain.NewRecord(time.Time{})
	require.NoError(t, s.Upsert(ctx, r))

	r.Property.Address = "unsaved edit"
	found, ok := s.FindByID(ctx, r.ID)
	require.True(t, ok)
	assert.Empty(t, found.Property.Address)

	found.Property.Address = "edit on loaded copy"
	again, _ := s.FindByID(ctx, r.ID)
	assert.Empty(t, again.Property.Address)
}

func TestUpsert_QuotaExceeded(t *testing.T) {
	s, _ := setupStoreTest(t, 2048)
	ctx := context.Background()
	r := domain.NewRecord(time.Time{})
	require.NoError(t, s.Upsert(ctx, r))

	r.Photo = "data:image/jpeg;base64," + string(make([]byte, 4096))
	err := s.Upsert(ctx, r)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.NotEmpty(t, r.Photo)

	stored, ok := s.FindByID(ctx, r.ID)
	require.True(t, ok)
	assert.Empty(t, stored.Photo)

	r.Photo = ""
	assert.NoError(t, s.Upsert(ctx, r))
}

func TestDelete(t *testing.T) {
	s, kv := setupStoreTest(t, 0)
	ctx := context.Background()
	r := domain.NewRecord(time.Time{})
	require.NoError(t, s.Upsert(ctx, r))
	writes := kv.sets

	removed, err := s.Delete(ctx, "val_missing")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, writes, kv.sets)
	assert.Len(t, s.LoadAll(ctx), 1)

	removed, err = s.Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.LoadAll(ctx))
}

func TestChangeStatus(t *testing.T) {
	s, _ := setupStoreTest(t, 0)
	ctx := context.Background()
	r := domain.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Upsert(ctx, r))

	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return later }
	got, err := s.ChangeStatus(ctx, r.ID, domain.StatusArchive)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchive, got.Status)
	assert.Equal(t, later, got.UpdatedAt)

	got, err = s.ChangeStatus(ctx, r.ID, domain.StatusWorking)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWorking, got.Status)

	_, err = s.ChangeStatus(ctx, "val_missing", domain.StatusArchive)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestStore_RedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewStore(kvstore.NewRedis(rdb, 0), testKey)
	ctx := context.Background()
	r := domain.NewRecord(time.Now())
	r.Comparables = domain.ExampleComparables(time.Now())
	require.NoError(t, s.Upsert(ctx, r))

	raw, err := mr.Get(testKey)
	require.NoError(t, err)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, r.ID, decoded[0]["id"])
	assert.Equal(t, "working", decoded[0]["status"])
}
