package series

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawRecord is one loosely-typed object from the feed. Values keep whatever
// type the decoder produced (float64, json.Number, string, integer kinds from
// msgpack, nil). Fields are validated one at a time by the accessors.
type RawRecord map[string]any

// Number reads a field as a finite float64
func (r RawRecord) Number(field string) (float64, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, &FieldError{Field: field, Err: ErrFieldMissing}
	}
	n, err := toNumber(v)
	if err != nil {
		return 0, &FieldError{Field: field, Err: err}
	}
	return n, nil
}

// OptionalNumber reads a field as a number, returning nil when it is absent or
// unusable. The rejection reason is returned alongside for logging.
func (r RawRecord) OptionalNumber(field string) (*float64, error) {
	n, err := r.Number(field)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// String reads a field as trimmed, non-empty text
func (r RawRecord) String(field string) (string, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", &FieldError{Field: field, Err: ErrFieldMissing}
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	default:
		return "", &FieldError{Field: field, Err: ErrFieldNotString}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", &FieldError{Field: field, Err: ErrFieldMissing}
	}
	return s, nil
}

// toNumber coerces a decoded JSON/msgpack value into a finite float64
func toNumber(v any) (float64, error) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int8:
		n = float64(t)
	case int16:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case uint:
		n = float64(t)
	case uint8:
		n = float64(t)
	case uint16:
		n = float64(t)
	case uint32:
		n = float64(t)
	case uint64:
		n = float64(t)
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, ErrFieldNotNumeric
		}
		n = f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, ErrFieldMissing
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, ErrFieldNotNumeric
		}
		n = f
	default:
		return 0, ErrFieldNotNumeric
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrFieldNotFinite
	}
	return n, nil
}
