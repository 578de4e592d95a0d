package wizard

import (
	"context"
	"encoding/json"
	"fmt"

	"rics-valuation/internal/domain"
	"rics-valuation/internal/pkg/validation"
)

// Wizard steps, in order.
const (
	StepProperty    = 1
	StepInspection  = 2
	StepComparables = 3
	StepMarket      = 4
	StepValuation   = 5
	StepValuer      = 6

	FirstStep = StepProperty
	LastStep  = StepValuer
)

// StepData is the form content of one step. Applying it replaces the
// matching record subsection wholesale.
type StepData interface {
	Step() int
	applyTo(rec *domain.ValuationRecord)
}

type PropertyStep domain.Property

func (PropertyStep) Step() int { return StepProperty }
func (p PropertyStep) applyTo(rec *domain.ValuationRecord) {
	rec.Property = domain.Property(p)
}

type InspectionStep domain.Inspection

func (InspectionStep) Step() int { return StepInspection }
func (i InspectionStep) applyTo(rec *domain.ValuationRecord) {
	rec.Inspection = domain.Inspection(i)
}

// ComparablesStep carries nothing: comparables are saved as they are edited.
type ComparablesStep struct{}

func (ComparablesStep) Step() int                        { return StepComparables }
func (ComparablesStep) applyTo(*domain.ValuationRecord) {}

type MarketStep domain.Market

func (MarketStep) Step() int { return StepMarket }
func (m MarketStep) applyTo(rec *domain.ValuationRecord) {
	rec.Market = domain.Market(m)
}

// ValuationNotesStep only carries the free-text justification; figures are
// set through the engine or the manual override.
type ValuationNotesStep struct {
	Notes string `json:"notes"`
}

func (ValuationNotesStep) Step() int { return StepValuation }
func (v ValuationNotesStep) applyTo(rec *domain.ValuationRecord) {
	if rec.Valuation == nil {
		rec.Valuation = &domain.ValuationResult{}
	}
	rec.Valuation.Notes = v.Notes
}

type ValuerStep domain.Valuer

func (ValuerStep) Step() int { return StepValuer }
func (v ValuerStep) applyTo(rec *domain.ValuationRecord) {
	rec.Valuer = domain.Valuer(v)
}

// DecodeStep parses a JSON form body for step. An empty body yields nil
// data, which saves the record unchanged.
func DecodeStep(ctx context.Context, step int, body []byte) (StepData, error) {
	if step < FirstStep || step > LastStep {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidStep, step)
	}
	if len(body) == 0 {
		return nil, nil
	}
	var data StepData
	var err error
	switch step {
	case StepProperty:
		var p PropertyStep
		err = json.Unmarshal(body, &p)
		data = p
	case StepInspection:
		var i InspectionStep
		err = json.Unmarshal(body, &i)
		data = i
	case StepComparables:
		data = ComparablesStep{}
	case StepMarket:
		var m MarketStep
		err = json.Unmarshal(body, &m)
		data = m
	case StepValuation:
		var v ValuationNotesStep
		err = json.Unmarshal(body, &v)
		data = v
	case StepValuer:
		var v ValuerStep
		err = json.Unmarshal(body, &v)
		data = v
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}
	if err := validation.Struct(ctx, data); err != nil {
		return nil, err
	}
	return data, nil
}
