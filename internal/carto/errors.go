package carto

import (
	"errors"
	"fmt"
)

// ErrNoSolution means a paran search found no crossing. It is an expected
// outcome, not a failure.
var ErrNoSolution = errors.New("no paran solution")

// OutOfRangeError reports a value outside its physical or configured bounds.
type OutOfRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %v out of range [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

func outOfRange(field string, value, min, max float64) error {
	return &OutOfRangeError{Field: field, Value: value, Min: min, Max: max}
}
