package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies analysis failures
type ErrorKind string

const (
	KindMissingColumn             ErrorKind = "MissingColumn"
	KindUnsupportedTransformation ErrorKind = "UnsupportedTransformation"
	KindInvalidDateRange          ErrorKind = "InvalidDateRange"
	KindEmptyInput                ErrorKind = "EmptyInput"
)

// Sentinels for errors.Is matching against *AnalysisError values
var (
	ErrMissingColumn             = errors.New("missing column")
	ErrUnsupportedTransformation = errors.New("unsupported transformation")
	ErrInvalidDateRange          = errors.New("invalid date range")
	ErrEmptyInput                = errors.New("empty input")
)

var kindSentinels = map[ErrorKind]error{
	KindMissingColumn:             ErrMissingColumn,
	KindUnsupportedTransformation: ErrUnsupportedTransformation,
	KindInvalidDateRange:          ErrInvalidDateRange,
	KindEmptyInput:                ErrEmptyInput,
}

// AnalysisError is returned by the analytics engine.
// Key names the series the failure belongs to, empty for whole-call failures.
type AnalysisError struct {
	Kind    ErrorKind
	Key     string
	Message string
}

func (e *AnalysisError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: series %s: %s", e.Kind, e.Key, e.Message)
}

// Is matches the sentinel for the error's kind
func (e *AnalysisError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// IsTransient returns false as analysis errors are deterministic
func (e *AnalysisError) IsTransient() bool {
	return false
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
