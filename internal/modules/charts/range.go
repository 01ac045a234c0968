package charts

import (
	"fmt"

	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// Range is an inclusive window [Start, End] of series indices. For a series
// of length n >= 2 a valid range has 0 <= Start < End <= n-1. A series with a
// single point uses the degenerate range {0, 0}.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FullRange covers every index of a series of the given length
func FullRange(length int) (Range, error) {
	switch {
	case length <= 0:
		return Range{}, ErrEmptySeries
	case length == 1:
		return Range{}, nil
	default:
		return Range{Start: 0, End: length - 1}, nil
	}
}

// Len is the number of points the range covers
func (r Range) Len() int {
	return r.End - r.Start + 1
}

// Valid reports whether r satisfies the window invariant for length
func (r Range) Valid(length int) bool {
	if length == 1 {
		return r.Start == 0 && r.End == 0
	}
	return length > 1 && r.Start >= 0 && r.Start < r.End && r.End <= length-1
}

// Clamp reconciles a stored range with a series of the given length. Indices
// that still fit are kept; out-of-bounds ones are pulled in. A degenerate
// range (single-point or inverted) expands to the full range.
func (r Range) Clamp(length int) (Range, error) {
	if length <= 1 || r.End <= r.Start {
		return FullRange(length)
	}
	end := formulas.ClampInt(r.End, 1, length-1)
	start := formulas.ClampInt(r.Start, 0, end-1)
	return Range{Start: start, End: end}, nil
}

// MoveStart moves the start handle. The request is clamped so that it stays
// at least one index below End.
func (r Range) MoveStart(index, length int) (Range, error) {
	cur, err := r.Clamp(length)
	if err != nil || length < 2 {
		return cur, err
	}
	cur.Start = formulas.ClampInt(index, 0, cur.End-1)
	return cur, nil
}

// MoveEnd moves the end handle. The request is clamped so that it stays at
// least one index above Start and inside the series.
func (r Range) MoveEnd(index, length int) (Range, error) {
	cur, err := r.Clamp(length)
	if err != nil || length < 2 {
		return cur, err
	}
	cur.End = formulas.ClampInt(index, cur.Start+1, length-1)
	return cur, nil
}

// Set replaces both handles, clamping each against the other. A request with
// start >= end is rejected.
func (r Range) Set(start, end, length int) (Range, error) {
	if start >= end {
		return r, fmt.Errorf("%w: range start %d must be below end %d", ErrInvalidInput, start, end)
	}
	if length < 2 {
		return FullRange(length)
	}
	end = formulas.ClampInt(end, 1, length-1)
	start = formulas.ClampInt(start, 0, end-1)
	return Range{Start: start, End: end}, nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%d..%d]", r.Start, r.End)
}
