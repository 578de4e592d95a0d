package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_Defaults(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	r := NewRecord(now)
	assert.True(t, strings.HasPrefix(r.ID, "val_"))
	assert.Equal(t, StatusWorking, r.Status)
	assert.Equal(t, now, r.CreatedAt)
	assert.Empty(t, r.Comparables)
	assert.NotNil(t, r.Comparables)
	assert.Nil(t, r.Valuation)
	assert.Equal(t, ModeAutomatic, r.ValuationMode())
}

func TestNewRecord_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRecord(time.Now()).ID
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestClone_IsDetached(t *testing.T) {
	r := NewRecord(time.Now())
	r.Comparables = append(r.Comparables, Comparable{ID: "comp1", SalePrice: 100})
	r.Valuation = &ValuationResult{EstimatedValue: 10, Notes: "n"}

	c := r.Clone()
	c.Comparables[0].SalePrice = 999
	c.Comparables[0].Adjustments.Size = 5
	c.Valuation.EstimatedValue = 20
	c.Property.Address = "changed"

	assert.Equal(t, float64(100), r.Comparables[0].SalePrice)
	assert.Equal(t, float64(0), r.Comparables[0].Adjustments.Size)
	assert.Equal(t, float64(10), r.Valuation.EstimatedValue)
	assert.Empty(t, r.Property.Address)
}

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in      Status
		want    Status
		changed bool
	}{
		{"draft", StatusWorking, true},
		{"completed", StatusComplete, true},
		{"", StatusWorking, true},
		{StatusWorking, StatusWorking, false},
		{StatusComplete, StatusComplete, false},
		{StatusArchive, StatusArchive, false},
	}
	for _, tc := range cases {
		got, changed := NormalizeStatus(tc.in)
		assert.Equal(t, tc.want, got, string(tc.in))
		assert.Equal(t, tc.changed, changed, string(tc.in))
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("Archive")
	require.NoError(t, err)
	assert.Equal(t, StatusArchive, s)

	s, err = ParseStatus("draft")
	require.NoError(t, err)
	assert.Equal(t, StatusWorking, s)

	_, err = ParseStatus("deleted")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDecode_LegacyRecord(t *testing.T) {
	raw := `{
		"property": {"address": "1 High St"},
		"comparables": [
			{"id": 1, "salePrice": 500000, "adjustments": {"size": 1, "timing": 4}},
			{"id": "comp7", "salePrice": 0}
		],
		"valuation": {},
		"status": "draft"
	}`
	var r ValuationRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Empty(t, r.ID)
	require.Len(t, r.Comparables, 2)
	assert.Equal(t, "1", r.Comparables[0].ID)
	assert.Equal(t, float64(4), r.Comparables[0].Adjustments.Time)
	assert.Equal(t, float64(5), r.Comparables[0].Adjustments.Total())
	assert.Equal(t, "comp7", r.Comparables[1].ID)
	assert.False(t, r.Comparables[1].Priced())

	assert.True(t, r.Normalize())
	assert.Equal(t, StatusWorking, r.Status)
	assert.False(t, r.Normalize())
}

func TestComparablePatch_Apply(t *testing.T) {
	c := Comparable{ID: "comp1", Address: "a", SalePrice: 1}
	price := 250000.0
	beds := 4
	ComparablePatch{SalePrice: &price, Bedrooms: &beds}.Apply(&c)
	assert.Equal(t, "a", c.Address)
	assert.Equal(t, price, c.SalePrice)
	assert.Equal(t, 4, c.Bedrooms)
}

func TestParseAdjustmentField(t *testing.T) {
	f, err := ParseAdjustmentField("timing")
	require.NoError(t, err)
	assert.Equal(t, AdjustTime, f)

	_, err = ParseAdjustmentField("view")
	assert.ErrorIs(t, err, ErrInvalidField)

	var a Adjustments
	a.Set(AdjustLocation, -3)
	assert.Equal(t, float64(-3), a.Location)
}

func TestExampleComparables(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ex := ExampleComparables(now)
	require.Len(t, ex, 5)
	prices := []float64{}
	for _, c := range ex {
		prices = append(prices, c.SalePrice)
	}
	assert.Equal(t, []float64{500000, 525000, 510000, 535000, 495000}, prices)
	assert.Equal(t, "2024-03-03", ex[0].SaleDate)
	assert.Equal(t, "comp1", ex[0].ID)
}
