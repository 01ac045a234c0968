// Package charts computes renderable 2-D geometry (arc, gauge, line, funnel and
// bar descriptors) from normalized series. Every function is pure: no I/O and
// no shared state.
package charts

import (
	"errors"

	"github.com/simplainvest/wealthboard/internal/modules/series"
)

var (
	// ErrDegenerateInput is returned when a ratio is undefined (zero or
	// negative totals, zero first funnel stage, non-positive gauge max)
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrInvalidInput is returned for parameters outside their domain
	// (negative slice values, inverted radii, bad viewport)
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptySeries is returned when there are no points to draw
	ErrEmptySeries = series.ErrEmptySeries
)

// IsNoData reports whether err means the chart should render a "no data" state
func IsNoData(err error) bool {
	return errors.Is(err, ErrDegenerateInput) || errors.Is(err, ErrEmptySeries)
}
