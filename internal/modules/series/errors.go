package series

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySeries is returned when no usable points remain
	ErrEmptySeries = errors.New("empty series")
	// ErrMalformedRecord marks a single feed record that could not be normalized
	ErrMalformedRecord = errors.New("malformed record")

	// ErrFieldMissing means the field is absent, null or blank
	ErrFieldMissing = errors.New("field missing")
	// ErrFieldNotNumeric means the field cannot be read as a number
	ErrFieldNotNumeric = errors.New("field not numeric")
	// ErrFieldNotFinite means the field parsed to NaN or an infinity
	ErrFieldNotFinite = errors.New("field not finite")
	// ErrFieldNotString means the field is not textual
	ErrFieldNotString = errors.New("field not a string")
	// ErrMalformedToken means a composite label token could not be split
	ErrMalformedToken = errors.New("malformed label token")
)

// FieldError describes why a single field of a record was rejected
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// MalformedRecordError reports a record excluded during normalization.
// It matches both ErrMalformedRecord and its underlying cause.
type MalformedRecordError struct {
	Index int
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}
