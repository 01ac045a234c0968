package charts

import (
	"fmt"
	"strconv"

	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// Default radii of the custody donut and the pie variant in a 100x100 box
const (
	DonutOuterRadius = 50.0
	DonutInnerRadius = 35.0
	PieRadius        = 40.0
)

// WeightedSlice is one category of a share-of-total chart
type WeightedSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// ArcPathDescriptor is the drawable outcome for one slice. Angles are in
// degrees, clockwise from 3 o'clock.
type ArcPathDescriptor struct {
	Label          string  `json:"label"`
	Color          string  `json:"color,omitempty"`
	Value          float64 `json:"value"`
	FormattedValue string  `json:"formatted_value"`
	Percentage     float64 `json:"percentage"`
	StartAngle     float64 `json:"start_angle"`
	EndAngle       float64 `json:"end_angle"`
	LargeArc       bool    `json:"large_arc"`
	Commands       Path    `json:"commands"`
	D              string  `json:"d"`
}

// ValueFormatter renders a slice value for tooltips and legends
type ValueFormatter func(float64) string

// DefaultValueFormatter renders the value with one decimal
func DefaultValueFormatter(v float64) string {
	return strconv.FormatFloat(formulas.Round1(v), 'f', 1, 64)
}

type arcConfig struct {
	center    Vec
	formatter ValueFormatter
}

// ArcOption customizes ComputeSlices
type ArcOption func(*arcConfig)

// WithCenter moves the chart center (default 50,50)
func WithCenter(x, y float64) ArcOption {
	return func(c *arcConfig) {
		c.center = Vec{X: x, Y: y}
	}
}

// WithValueFormatter sets how slice values are rendered
func WithValueFormatter(f ValueFormatter) ArcOption {
	return func(c *arcConfig) {
		if f != nil {
			c.formatter = f
		}
	}
}

// ComputeSlices lays slices out around a circle in input order starting at
// angle 0. Each slice spans 360*value/total degrees and the last one closes
// exactly at 360. innerRadius 0 draws pie wedges, a positive innerRadius draws
// ring segments.
//
// Negative or non-finite values and inverted radii are rejected with
// ErrInvalidInput. A zero total (including no slices) yields
// ErrDegenerateInput.
func ComputeSlices(slices []WeightedSlice, innerRadius, outerRadius float64, opts ...ArcOption) ([]ArcPathDescriptor, error) {
	cfg := arcConfig{
		center:    Vec{X: 50, Y: 50},
		formatter: DefaultValueFormatter,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !formulas.IsFinite(innerRadius) || !formulas.IsFinite(outerRadius) ||
		innerRadius < 0 || outerRadius <= innerRadius {
		return nil, fmt.Errorf("%w: radii inner=%v outer=%v", ErrInvalidInput, innerRadius, outerRadius)
	}

	values := make([]float64, len(slices))
	for i, s := range slices {
		if !formulas.IsFinite(s.Value) || s.Value < 0 {
			return nil, fmt.Errorf("%w: slice %q has value %v", ErrInvalidInput, s.Label, s.Value)
		}
		values[i] = s.Value
	}

	total := formulas.Sum(values)
	if !formulas.IsFinite(360 * total) {
		return nil, fmt.Errorf("%w: slice total overflows", ErrInvalidInput)
	}
	pcts, ok := formulas.SharePercentages(values)
	if !ok {
		return nil, fmt.Errorf("%w: slice total is zero", ErrDegenerateInput)
	}

	out := make([]ArcPathDescriptor, len(slices))
	cumulative := 0.0
	for i, s := range slices {
		start := 360 * cumulative / total
		cumulative += s.Value
		end := 360 * cumulative / total
		if i == len(slices)-1 {
			end = 360
		}

		d := slicePath(cfg.center, innerRadius, outerRadius, start, end)
		out[i] = ArcPathDescriptor{
			Label:          s.Label,
			Color:          s.Color,
			Value:          s.Value,
			FormattedValue: cfg.formatter(s.Value),
			Percentage:     pcts[i],
			StartAngle:     start,
			EndAngle:       end,
			LargeArc:       end-start > 180,
			Commands:       d,
			D:              d.String(),
		}
	}

	return out, nil
}

// slicePath draws one ring segment (inner > 0) or wedge (inner == 0). A full
// circle cannot be expressed as a single arc, so it is split in two halves.
func slicePath(c Vec, inner, outer, start, end float64) Path {
	sweep := end - start
	full := sweep >= 360
	mid := start + sweep/2

	var p Path
	if inner == 0 {
		if full {
			return p.MoveTo(Polar(c, outer, start)).
				ArcTo(outer, false, true, Polar(c, outer, mid)).
				ArcTo(outer, false, true, Polar(c, outer, end)).
				Close()
		}
		return p.MoveTo(c).
			LineTo(Polar(c, outer, start)).
			ArcTo(outer, sweep > 180, true, Polar(c, outer, end)).
			Close()
	}

	p = p.MoveTo(Polar(c, outer, start))
	if full {
		p = p.ArcTo(outer, false, true, Polar(c, outer, mid)).
			ArcTo(outer, false, true, Polar(c, outer, end)).
			LineTo(Polar(c, inner, end)).
			ArcTo(inner, false, false, Polar(c, inner, mid)).
			ArcTo(inner, false, false, Polar(c, inner, start))
	} else {
		p = p.ArcTo(outer, sweep > 180, true, Polar(c, outer, end)).
			LineTo(Polar(c, inner, end)).
			ArcTo(inner, sweep > 180, false, Polar(c, inner, start))
	}
	return p.Close()
}
