package domain

import (
	"encoding/json"
	"strconv"
)

// Adjustments are signed percentages applied to a comparable's sale price.
type Adjustments struct {
	Size      float64 `json:"size"`
	Condition float64 `json:"condition"`
	Location  float64 `json:"location"`
	Time      float64 `json:"time"`
}

// AdjustmentField names one component of Adjustments.
type AdjustmentField string

const (
	AdjustSize      AdjustmentField = "size"
	AdjustCondition AdjustmentField = "condition"
	AdjustLocation  AdjustmentField = "location"
	AdjustTime      AdjustmentField = "time"
)

func ParseAdjustmentField(s string) (AdjustmentField, error) {
	switch f := AdjustmentField(s); f {
	case AdjustSize, AdjustCondition, AdjustLocation, AdjustTime:
		return f, nil
	case "timing":
		return AdjustTime, nil
	}
	return "", ErrInvalidField
}

// Total is the summed adjustment percentage.
func (a Adjustments) Total() float64 {
	return a.Size + a.Condition + a.Location + a.Time
}

// Set writes a single component.
func (a *Adjustments) Set(field AdjustmentField, value float64) {
	switch field {
	case AdjustSize:
		a.Size = value
	case AdjustCondition:
		a.Condition = value
	case AdjustLocation:
		a.Location = value
	case AdjustTime:
		a.Time = value
	}
}

// UnmarshalJSON reads the older "timing" key as Time.
func (a *Adjustments) UnmarshalJSON(data []byte) error {
	type alias Adjustments
	aux := struct {
		Timing *float64 `json:"timing"`
		*alias
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.Time == 0 && aux.Timing != nil {
		a.Time = *aux.Timing
	}
	return nil
}

// Comparable is a sold property used as market evidence.
type Comparable struct {
	ID           string      `json:"id"`
	Address      string      `json:"address"`
	Postcode     string      `json:"postcode,omitempty"`
	PropertyType string      `json:"propertyType,omitempty"`
	SalePrice    float64     `json:"salePrice"`
	SaleDate     string      `json:"saleDate"`
	FloorArea    int         `json:"floorArea"`
	SquareFeet   int         `json:"squareFeet,omitempty"`
	AreaUnit     string      `json:"areaUnit,omitempty"`
	Bedrooms     int         `json:"bedrooms"`
	Condition    string      `json:"condition"`
	Adjustments  Adjustments `json:"adjustments"`
}

// Priced reports whether the comparable contributes to a valuation.
func (c Comparable) Priced() bool {
	return c.SalePrice > 0
}

// Area prefers FloorArea and falls back to the older SquareFeet field.
func (c Comparable) Area() int {
	if c.FloorArea > 0 {
		return c.FloorArea
	}
	return c.SquareFeet
}

// UnmarshalJSON accepts numeric ids, which older seeded comparables used.
func (c *Comparable) UnmarshalJSON(data []byte) error {
	type alias Comparable
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.ID = ""
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.ID, &s); err == nil {
		c.ID = s
		return nil
	}
	var n float64
	if err := json.Unmarshal(aux.ID, &n); err != nil {
		return err
	}
	c.ID = strconv.FormatFloat(n, 'f', -1, 64)
	return nil
}

// ComparablePatch is a partial update of one comparable; nil fields are left alone.
type ComparablePatch struct {
	Address      *string  `json:"address,omitempty"`
	Postcode     *string  `json:"postcode,omitempty"`
	PropertyType *string  `json:"propertyType,omitempty"`
	SalePrice    *float64 `json:"salePrice,omitempty" validate:"omitempty,gte=0"`
	SaleDate     *string  `json:"saleDate,omitempty"`
	FloorArea    *int     `json:"floorArea,omitempty" validate:"omitempty,gte=0"`
	AreaUnit     *string  `json:"areaUnit,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty" validate:"omitempty,gte=0"`
	Condition    *string  `json:"condition,omitempty"`
}

// Apply copies the set fields onto c.
func (p ComparablePatch) Apply(c *Comparable) {
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Postcode != nil {
		c.Postcode = *p.Postcode
	}
	if p.PropertyType != nil {
		c.PropertyType = *p.PropertyType
	}
	if p.SalePrice != nil {
		c.SalePrice = *p.SalePrice
	}
	if p.SaleDate != nil {
		c.SaleDate = *p.SaleDate
	}
	if p.FloorArea != nil {
		c.FloorArea = *p.FloorArea
	}
	if p.AreaUnit != nil {
		c.AreaUnit = *p.AreaUnit
	}
	if p.Bedrooms != nil {
		c.Bedrooms = *p.Bedrooms
	}
	if p.Condition != nil {
		c.Condition = *p.Condition
	}
}
