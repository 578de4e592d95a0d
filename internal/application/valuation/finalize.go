package valuation

import (
	"context"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/pkg/validation"
)

// MinPricedComparables is the evidence required before a report can be signed off.
const MinPricedComparables = 3

const (
	msgComparables   = "Please add at least 3 comparable properties with sale prices for accurate valuation."
	msgNoValueAuto   = "Please calculate the valuation or switch to manual mode to enter your own valuation."
	msgNoValueManual = "Please enter a manual valuation amount and range."
	msgManualRange   = "Please enter both lower and upper range values for your manual valuation."
	msgManualBracket = "The valuation range should have the lower value below and upper value above the estimated value."
)

type evidenceCheck struct {
	PricedComparables int `validate:"gte=3"`
}

type manualRangeCheck struct {
	EstimatedValue float64
	LowerRange     float64 `validate:"ltfield=EstimatedValue"`
	UpperRange     float64 `validate:"gtfield=EstimatedValue"`
}

// ValidateForFinalization applies the sign-off rules: enough priced
// comparables, a valuation figure, and in manual mode a range that brackets
// the estimate. Failures come back as *domain.ValidationError.
func ValidateForFinalization(ctx context.Context, rec *domain.ValuationRecord) error {
	var issues []string

	if err := validation.Struct(ctx, evidenceCheck{PricedComparables: len(rec.PricedComparables())}); err != nil {
		issues = append(issues, msgComparables)
	}

	v := rec.Valuation
	mode := rec.ValuationMode()
	switch {
	case v == nil || v.EstimatedValue == 0:
		if mode == domain.ModeManual {
			issues = append(issues, msgNoValueManual)
		} else {
			issues = append(issues, msgNoValueAuto)
		}
	case mode == domain.ModeManual && (v.LowerRange == 0 || v.UpperRange == 0):
		issues = append(issues, msgManualRange)
	case mode == domain.ModeManual:
		check := manualRangeCheck{EstimatedValue: v.EstimatedValue, LowerRange: v.LowerRange, UpperRange: v.UpperRange}
		if err := validation.Struct(ctx, check); err != nil {
			issues = append(issues, msgManualBracket)
		}
	}

	if len(issues) > 0 {
		return &domain.ValidationError{Issues: issues}
	}
	return nil
}
