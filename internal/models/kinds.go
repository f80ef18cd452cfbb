package models

import (
	"fmt"
	"strings"
)

// Frequency is the sampling cadence of a series
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyUnknown   Frequency = "unknown"
)

// PeriodsPerYear returns the number of observations in one year, 0 when unknown
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	default:
		return 0
	}
}

// Transformation is one of the derived views of a series
type Transformation string

const (
	TransformRaw              Transformation = "raw"
	TransformPeriodDifference Transformation = "period_difference"
	TransformPeriodRate       Transformation = "period_rate"
	TransformAnnualDifference Transformation = "annual_difference"
	TransformAnnualRate       Transformation = "annual_rate"
)

// IsAnnual reports whether the lag depends on the inferred frequency
func (t Transformation) IsAnnual() bool {
	return t == TransformAnnualDifference || t == TransformAnnualRate
}

// IsRate reports whether the transformation is a percentage change
func (t Transformation) IsRate() bool {
	return t == TransformPeriodRate || t == TransformAnnualRate
}

// View is the requested comparison view
type View string

const (
	ViewOriginal       View = "Original"
	ViewPeriodOnPeriod View = "PeriodOnPeriod"
	ViewInterannual    View = "Interannual"
)

// SubOption refines PeriodOnPeriod and Interannual views
type SubOption string

const (
	SubNone         SubOption = ""
	SubDifference   SubOption = "Difference"
	SubRateOfChange SubOption = "RateOfChange"
)

// ParseView parses a view name case-insensitively
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "original":
		return ViewOriginal, nil
	case "periodonperiod", "period-on-period", "pop":
		return ViewPeriodOnPeriod, nil
	case "interannual", "yoy":
		return ViewInterannual, nil
	}
	return "", &ValidationError{Field: "view", Value: s, Message: fmt.Sprintf("unknown view %q", s)}
}

// ParseSubOption parses a sub-option name case-insensitively
func ParseSubOption(s string) (SubOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SubNone, nil
	case "difference", "diff":
		return SubDifference, nil
	case "rateofchange", "rate-of-change", "rate":
		return SubRateOfChange, nil
	}
	return "", &ValidationError{Field: "sub", Value: s, Message: fmt.Sprintf("unknown sub-option %q", s)}
}

// Axis identifies the Y axis a comparison entry is drawn on
type Axis string

const (
	AxisPrimary   Axis = "primary"
	AxisSecondary Axis = "secondary"
)
