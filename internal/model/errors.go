package model

import "fmt"

// MissingFieldError reports a requirement record or case missing a required
// field. Field is the JSON path of the offending value, e.g.
// "[3].functional_requirements[0].title".
type MissingFieldError struct {
	Source string
	Field  string
}

func (e *MissingFieldError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("missing required field %s", e.Field)
	}
	return fmt.Sprintf("%s: missing required field %s", e.Source, e.Field)
}

// InsufficientDataError reports a corpus that cannot train a classifier:
// empty, or with fewer than two distinct labels.
type InsufficientDataError struct {
	Cases  int
	Labels int
}

func (e *InsufficientDataError) Error() string {
	if e.Cases == 0 {
		return "insufficient data: corpus is empty"
	}
	return fmt.Sprintf("insufficient data: %d case(s) with %d distinct label(s), need at least 2 labels",
		e.Cases, e.Labels)
}

// DimensionMismatchError reports vectors whose lengths disagree.
type DimensionMismatchError struct {
	What string
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %s has %d dimensions, expected %d", e.What, e.Got, e.Want)
}

// ShapeAssumptionError reports an attribution result that is neither a
// single vector nor a per-class set containing the predicted class.
type ShapeAssumptionError struct {
	Detail string
}

func (e *ShapeAssumptionError) Error() string {
	return "unrecognized attribution shape: " + e.Detail
}
