package a429

import (
	"errors"
	"fmt"
)

var (
	ErrLayout        = errors.New("a429: invalid bit range")
	ErrOutOfRange    = errors.New("a429: bit index outside word")
	ErrCapacity      = errors.New("a429: fields exceed word capacity")
	ErrNotFound      = errors.New("a429: field not found")
	ErrAmbiguousName = errors.New("a429: duplicate field name")
	ErrOverflow      = errors.New("a429: value does not fit field")
	ErrTypeMismatch  = errors.New("a429: value type mismatch")
	ErrInvalidValue  = errors.New("a429: invalid value")

	// ErrOverlap is reported by strict layouts only and matches ErrLayout.
	ErrOverlap = fmt.Errorf("%w: overlapping fields", ErrLayout)
)

// FieldError ties a structural or access error to the layout and field that
// produced it.
type FieldError struct {
	Layout string
	Field  Name
	Detail string
	Err    error
}

func (e *FieldError) Error() string {
	where := string(e.Field)
	if e.Layout != "" {
		where = e.Layout + "." + where
	}
	if e.Detail == "" {
		return fmt.Sprintf("%v: %s", e.Err, where)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, where, e.Detail)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// OverflowError reports a value that was clamped into its field. The word
// carries Stored after the failed set; Requested is what the caller asked for.
type OverflowError struct {
	Field     Name
	Requested any
	Stored    any
}

func (e *OverflowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: requested %v, stored %v", ErrOverflow, e.Requested, e.Stored)
	}
	return fmt.Sprintf("%v: %s: requested %v, stored %v", ErrOverflow, e.Field, e.Requested, e.Stored)
}

func (e *OverflowError) Unwrap() error {
	return ErrOverflow
}
