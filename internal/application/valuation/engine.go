// Package valuation turns comparable sales into an opinion of market value.
package valuation

import (
	"math"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/metrics"
)

// RangeBand is the fixed half-width of the reported value range.
const RangeBand = 0.05

// MarketMultiplier composes the market-conditions factor and then the
// location-quality factor. Unrecognised classifications are neutral.
func MarketMultiplier(m domain.Market) float64 {
	mult := 1.0
	switch m.Conditions {
	case domain.ConditionsStrong:
		mult = 1.05
	case domain.ConditionsWeak:
		mult = 0.95
	}
	switch m.LocationQuality {
	case domain.LocationPrime:
		mult *= 1.10
	case domain.LocationGood:
		mult *= 1.05
	case domain.LocationBelowAverage:
		mult *= 0.95
	}
	return mult
}

// AdjustedPrice applies a comparable's summed adjustment percentage to its
// sale price.
func AdjustedPrice(c domain.Comparable) float64 {
	return c.SalePrice * (1 + c.Adjustments.Total()/100)
}

// Calculate is the automatic valuation. It reports false, producing nothing,
// when no comparable has a positive sale price. The estimate is not clamped,
// so extreme negative adjustments can yield zero or negative values.
func Calculate(comparables []domain.Comparable, market domain.Market) (domain.ValuationResult, bool) {
	sum := 0.0
	n := 0
	for _, c := range comparables {
		if !c.Priced() {
			continue
		}
		sum += AdjustedPrice(c)
		n++
	}
	if n == 0 {
		return domain.ValuationResult{}, false
	}
	avg := sum / float64(n)
	mult := MarketMultiplier(market)
	est := Round(avg * mult)
	return domain.ValuationResult{
		Mode:              domain.ModeAutomatic,
		EstimatedValue:    est,
		LowerRange:        Round(est * (1 - RangeBand)),
		UpperRange:        Round(est * (1 + RangeBand)),
		ComparableCount:   n,
		AverageComparable: Round(avg),
		MarketAdjustment:  mult,
	}, true
}

// Apply recalculates rec's valuation in place. Records in manual mode are
// left untouched, as are records without priced comparables. Existing notes
// survive recalculation. It reports whether the valuation was replaced.
func Apply(rec *domain.ValuationRecord) bool {
	if rec.Valuation != nil && rec.Valuation.Mode == domain.ModeManual {
		metrics.Valuations.WithLabelValues(metrics.OutcomeManual).Inc()
		return false
	}
	res, ok := Calculate(rec.Comparables, rec.Market)
	if !ok {
		metrics.Valuations.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return false
	}
	if rec.Valuation != nil {
		res.Notes = rec.Valuation.Notes
	}
	rec.Valuation = &res
	metrics.Valuations.WithLabelValues(metrics.OutcomeComputed).Inc()
	return true
}

// PricePerArea is the estimate divided by floor area, rounded to a whole
// unit. It reports false when the area is zero or negative.
func PricePerArea(estimated float64, floorArea int) (float64, bool) {
	if floorArea <= 0 {
		return 0, false
	}
	return Round(estimated / float64(floorArea)), true
}

// Round rounds half up (towards positive infinity), so -2.5 becomes -2.
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}
