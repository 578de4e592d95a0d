package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

const recordIDPrefix = "val_"

// NewRecordID returns a fresh report id.
func NewRecordID() string {
	return recordIDPrefix + uuid.NewString()
}

type Property struct {
	Address        string `json:"address"`
	Postcode       string `json:"postcode"`
	Borough        string `json:"borough"`
	Type           string `json:"type"`
	Tenure         string `json:"tenure"`
	Bedrooms       int    `json:"bedrooms" validate:"gte=0"`
	Bathrooms      int    `json:"bathrooms" validate:"gte=0"`
	ReceptionRooms int    `json:"receptionRooms" validate:"gte=0"`
	Area           int    `json:"area" validate:"gte=0"`
	AreaUnit       string `json:"areaUnit"`
	FloorArea      int    `json:"floorArea" validate:"gte=0"`
	FloorAreaUnit  string `json:"floorAreaUnit"`
	YearBuilt      string `json:"yearBuilt"`
	Condition      string `json:"condition"`
}

type Inspection struct {
	InspectionDate string `json:"inspectionDate"`
	ValuationDate  string `json:"valuationDate"`
	InspectionType string `json:"inspectionType"`
	Limitations    string `json:"limitations"`
	Purpose        string `json:"purpose"`
	Basis          string `json:"basis"`
	Assumptions    string `json:"assumptions"`
}

type Market struct {
	Conditions      string `json:"conditions"`
	Trend           string `json:"trend"`
	LocationQuality string `json:"locationQuality"`
	TransportLinks  string `json:"transportLinks"`
	Amenities       string `json:"amenities"`
	Commentary      string `json:"commentary"`
}

type Valuer struct {
	Name           string `json:"name"`
	Qualification  string `json:"qualification"`
	Company        string `json:"company"`
	CompanyAddress string `json:"companyAddress"`
}

// ValuationResult is the opinion of value. The count, average and market
// adjustment fields are only filled by automatic calculation.
type ValuationResult struct {
	Mode              Mode    `json:"mode,omitempty"`
	EstimatedValue    float64 `json:"estimatedValue"`
	LowerRange        float64 `json:"lowerRange"`
	UpperRange        float64 `json:"upperRange"`
	ComparableCount   int     `json:"comparableCount,omitempty"`
	AverageComparable float64 `json:"averageComparable,omitempty"`
	MarketAdjustment  float64 `json:"marketAdjustment,omitempty"`
	Notes             string  `json:"notes"`
}

// EffectiveMode treats an unset mode as automatic.
func (v *ValuationResult) EffectiveMode() Mode {
	if v == nil || v.Mode == "" {
		return ModeAutomatic
	}
	return v.Mode
}

// ValuationRecord is one valuation report.
type ValuationRecord struct {
	ID          string           `json:"id"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Property    Property         `json:"property"`
	Inspection  Inspection       `json:"inspection"`
	Comparables []Comparable     `json:"comparables"`
	Market      Market           `json:"market"`
	Valuation   *ValuationResult `json:"valuation"`
	Valuer      Valuer           `json:"valuer"`
	Photo       string           `json:"photo,omitempty"`
}

// NewRecord builds an empty working record.
func NewRecord(now time.Time) *ValuationRecord {
	return &ValuationRecord{
		ID:          NewRecordID(),
		Status:      StatusWorking,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comparables: []Comparable{},
	}
}

// Clone returns a deep copy.
func (r *ValuationRecord) Clone() *ValuationRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Comparables = make([]Comparable, len(r.Comparables))
	copy(out.Comparables, r.Comparables)
	if r.Valuation != nil {
		v := *r.Valuation
		out.Valuation = &v
	}
	return &out
}

// ValuationMode is the record's valuation mode, automatic when nothing is recorded.
func (r *ValuationRecord) ValuationMode() Mode {
	return r.Valuation.EffectiveMode()
}

// PricedComparables returns the comparables with a positive sale price.
func (r *ValuationRecord) PricedComparables() []Comparable {
	out := make([]Comparable, 0, len(r.Comparables))
	for _, c := range r.Comparables {
		if c.Priced() {
			out = append(out, c)
		}
	}
	return out
}

// ComparableIndex returns the slice index of the comparable with id, or -1.
func (r *ValuationRecord) ComparableIndex(id string) int {
	for i := range r.Comparables {
		if r.Comparables[i].ID == id {
			return i
		}
	}
	return -1
}

// Normalize fills defaults a decoded record may be missing. It reports
// whether anything changed.
func (r *ValuationRecord) Normalize() bool {
	changed := false
	if st, ok := NormalizeStatus(r.Status); ok {
		r.Status = st
		changed = true
	}
	if r.Comparables == nil {
		r.Comparables = []Comparable{}
	}
	return changed
}

// LastActivity is UpdatedAt, or CreatedAt for records that were never saved.
func (r *ValuationRecord) LastActivity() time.Time {
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

// ExampleComparables are the five sample sales offered when a new report is
// started interactively.
func ExampleComparables(now time.Time) []Comparable {
	day := 24 * time.Hour
	saleDate := func(daysAgo int) string {
		return now.Add(-time.Duration(daysAgo) * day).Format("2006-01-02")
	}
	ex := []struct {
		price    float64
		daysAgo  int
		beds     int
		kind     string
		area     int
		cond     string
		postcode string
	}{
		{500000, 90, 3, "terraced", 1200, "good", "SW1A 1AA"},
		{525000, 60, 3, "terraced", 1250, "good", "SW1A 2AA"},
		{510000, 120, 3, "terraced", 1180, "average", "SW1A 3AA"},
		{535000, 45, 3, "semi-detached", 1300, "good", "SW1A 4AA"},
		{495000, 150, 2, "terraced", 1100, "average", "SW1A 5AA"},
	}
	out := make([]Comparable, 0, len(ex))
	for i, e := range ex {
		n := strconv.Itoa(i + 1)
		out = append(out, Comparable{
			ID:           "comp" + n,
			Address:      "Example Property " + n,
			Postcode:     e.postcode,
			PropertyType: e.kind,
			SalePrice:    e.price,
			SaleDate:     saleDate(e.daysAgo),
			FloorArea:    e.area,
			AreaUnit:     "sqm",
			Bedrooms:     e.beds,
			Condition:    e.cond,
		})
	}
	return out
}
