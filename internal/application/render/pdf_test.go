package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"rics-valuation/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func sampleRecord() *domain.ValuationRecord {
	rec := domain.NewRecord(renderNow)
	rec.Property = domain.Property{
		Address:   "14 Cheyne Walk",
		Postcode:  "SW3 5RA",
		Borough:   "Kensington and Chelsea",
		Type:      "terraced",
		Tenure:    "freehold",
		Bedrooms:  3,
		FloorArea: 1000,
	}
	rec.Inspection = domain.Inspection{
		InspectionDate: "2024-05-28",
		ValuationDate:  "2024-06-01",
		Limitations:    "Roof void not accessed.",
		Assumptions:    "Vacant possession.",
	}
	rec.Market = domain.Market{Conditions: "Normal", LocationQuality: "Good"}
	rec.Comparables = domain.ExampleComparables(renderNow)
	rec.Valuation = &domain.ValuationResult{
		Mode:              domain.ModeAutomatic,
		EstimatedValue:    537250,
		LowerRange:        510388,
		UpperRange:        564113,
		ComparableCount:   3,
		AverageComparable: 511667,
		MarketAdjustment:  1.05,
		Notes:             "Comparables 1-3 are closest in size.",
	}
	rec.Valuer = domain.Valuer{Name: "A. Surveyor", Qualification: "MRICS", Company: "Surveyor & Co"}
	return rec
}

// renderPlain renders without stream compression so page text can be searched.
func renderPlain(t *testing.T, rec *domain.ValuationRecord) string {
	t.Helper()
	doc := build(rec, renderNow)
	doc.SetCompression(false)
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.String()
}

func TestPDF_WritesDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, sampleRecord(), renderNow))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDF_AutomaticSummary(t *testing.T) {
	out := renderPlain(t, sampleRecord())
	assert.Contains(t, out, "METHOD: AUTOMATIC")
	assert.Contains(t, out, "Number of Comparables Analysed: 3")
	assert.Contains(t, out, "Market Adjustment Factor: 5.0%")
	assert.Contains(t, out, "537,250")
	assert.Contains(t, out, "Page 1 of ")
	assert.Contains(t, out, "01 June 2024")
}

func TestPDF_ManualWithoutFloorArea(t *testing.T) {
	rec := sampleRecord()
	rec.Property.FloorArea = 0
	rec.Valuation = &domain.ValuationResult{Mode: domain.ModeManual, EstimatedValue: 600000, LowerRange: 580000, UpperRange: 620000}

	out := renderPlain(t, rec)
	assert.Contains(t, out, "METHOD: MANUAL")
	assert.Contains(t, out, "Not computable")
	assert.NotContains(t, out, "Number of Comparables Analysed")
}

func TestPDF_EmptyRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, domain.NewRecord(renderNow), renderNow))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDF_EmbedsPhoto(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		img.Set(x, 3, color.RGBA{R: 200, A: 255})
	}
	var jb bytes.Buffer
	require.NoError(t, jpeg.Encode(&jb, img, nil))

	rec := sampleRecord()
	rec.Photo = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jb.Bytes())
	out := renderPlain(t, rec)
	assert.Contains(t, out, "/Subtype /Image")

	rec.Photo = "data:image/jpeg;base64,not-an-image"
	out = renderPlain(t, rec)
	assert.NotContains(t, out, "/Subtype /Image")
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "£537,250", Currency(537250))
	assert.Equal(t, "£0", Currency(0))
	assert.Equal(t, "-£50,000", Currency(-50000))
	assert.Equal(t, "£1,000,000", Currency(999999.6))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "03 March 2024", Date("2024-03-03"))
	assert.Equal(t, "Not specified", Date(""))
	assert.Equal(t, "next spring", Date("next spring"))
}

func TestFilename(t *testing.T) {
	rec := sampleRecord()
	assert.Equal(t, "RICS_Valuation_SW3_5RA_2024-06-01.pdf", Filename(rec, renderNow))
	rec.Property.Postcode = ""
	assert.Equal(t, "RICS_Valuation_DRAFT_2024-06-01.pdf", Filename(rec, renderNow))
}
