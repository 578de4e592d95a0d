package reports

import (
	"context"
	"testing"
	"time"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/infrastructure/kvstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dashboardFixture() []*domain.ValuationRecord {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 15, 30, 0, 0, time.UTC) }
	return []*domain.ValuationRecord{
		{ID: "a", Status: domain.StatusWorking, UpdatedAt: day(1),
			Property: domain.Property{Address: "12 Acacia Avenue", Postcode: "N1 2AB"}},
		{ID: "b", Status: domain.StatusComplete, UpdatedAt: day(5),
			Property: domain.Property{Address: "3 Baker Street", Postcode: "NW1 6XE"},
			Valuer:   domain.Valuer{Company: "Harbour Surveyors"}},
		{ID: "c", Status: domain.StatusArchive, CreatedAt: day(10),
			Property: domain.Property{Address: "Flat 2, Mill Lane", Postcode: "SE1 9ZZ"}},
	}
}

func ids(recs []*domain.ValuationRecord) []string {
	out := []string{}
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter_Search(t *testing.T) {
	recs := dashboardFixture()
	assert.Equal(t, []string{"a"}, ids(Filter{Search: "ACACIA"}.Apply(recs, time.UTC)))
	assert.Equal(t, []string{"b"}, ids(Filter{Search: "nw1"}.Apply(recs, time.UTC)))
	assert.Equal(t, []string{"b"}, ids(Filter{Search: "harbour"}.Apply(recs, time.UTC)))
	assert.Empty(t, Filter{Search: "nowhere"}.Apply(recs, time.UTC))
	assert.Len(t, Filter{}.Apply(recs, time.UTC), 3)
}

func TestFilter_Status(t *testing.T) {
	recs := dashboardFixture()
	assert.Equal(t, []string{"c"}, ids(Filter{Status: "archive"}.Apply(recs, time.UTC)))
	assert.Equal(t, []string{"b"}, ids(Filter{Status: "complete", Search: "street"}.Apply(recs, time.UTC)))
}

func TestFilter_DateRange(t *testing.T) {
	recs := dashboardFixture()
	one := Filter{DateRange: &DateRange{Start: "2024-03-05"}}
	assert.Equal(t, []string{"b"}, ids(one.Apply(recs, time.UTC)))

	span := Filter{DateRange: &DateRange{Start: "2024-03-01", End: "2024-03-05"}}
	assert.Equal(t, []string{"a", "b"}, ids(span.Apply(recs, time.UTC)))

	// falls back to createdAt when never updated
	late := Filter{DateRange: &DateRange{Start: "2024-03-10", End: "2024-03-31"}}
	assert.Equal(t, []string{"c"}, ids(late.Apply(recs, time.UTC)))
}

func TestFilter_InvalidDateMatchesNothing(t *testing.T) {
	recs := dashboardFixture()
	bad := Filter{DateRange: &DateRange{Start: "not-a-day"}}
	assert.Empty(t, bad.Apply(recs, time.UTC))
	assert.ErrorIs(t, bad.DateRange.Validate(), domain.ErrInvalidDate)

	badEnd := DateRange{Start: "2024-03-01", End: "2024-13-45"}
	assert.Empty(t, Filter{DateRange: &badEnd}.Apply(recs, time.UTC))
	assert.ErrorIs(t, badEnd.Validate(), domain.ErrInvalidDate)

	assert.NoError(t, DateRange{Start: "2024-03-01", End: "2024-03-05"}.Validate())
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	recs := dashboardFixture()
	_ = Filter{Status: "archive"}.Apply(recs, time.UTC)
	assert.Len(t, recs, 3)
}

func TestList_UsesStoredReports(t *testing.T) {
	s, _ := setupStoreTest(t, 0)
	ctx := context.Background()
	for _, r := range dashboardFixture() {
		require.NoError(t, s.Upsert(ctx, r))
	}
	got := s.List(ctx, Filter{Search: "mill"})
	assert.Equal(t, []string{"c"}, ids(got))
}

func TestFilterState_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewStore(kvstore.NewRedis(rdb, 0), testKey)
	ctx := context.Background()

	_, ok := s.LoadFilterState(ctx, "sess-1")
	assert.False(t, ok)

	f := Filter{Search: "acacia", Status: "working", DateRange: &DateRange{Start: "2024-03-01"}}
	require.NoError(t, s.SaveFilterState(ctx, "sess-1", f))
	assert.True(t, mr.Exists("dashboardFilters:sess-1"))
	assert.Equal(t, FilterStateTTL, mr.TTL("dashboardFilters:sess-1"))

	got, ok := s.LoadFilterState(ctx, "sess-1")
	require.True(t, ok)
	assert.Equal(t, f, got)

	_, ok = s.LoadFilterState(ctx, "sess-2")
	assert.False(t, ok)

	mr.FastForward(FilterStateTTL + time.Minute)
	_, ok = s.LoadFilterState(ctx, "sess-1")
	assert.False(t, ok)
}
