package charts

import (
	"fmt"

	"github.com/simplainvest/wealthboard/internal/modules/series"
	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// Viewport describes the drawing surface of a line chart. Height is the plot
// height; PaddingY is the offset of the plot's top edge. When PointGap is zero
// it is derived from Width.
type Viewport struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	PaddingX  float64 `json:"padding_x"`
	PaddingY  float64 `json:"padding_y"`
	PointGap  float64 `json:"point_gap"`
	TickEvery int     `json:"tick_every"`
}

// DefaultViewport matches the weekly inflow line chart
func DefaultViewport() Viewport {
	return Viewport{
		Height:    240,
		PaddingX:  30,
		PaddingY:  20,
		PointGap:  50,
		TickEvery: 3,
	}
}

func (vp Viewport) validate() error {
	for _, v := range []float64{vp.Width, vp.Height, vp.PaddingX, vp.PaddingY, vp.PointGap} {
		if !formulas.IsFinite(v) || v < 0 {
			return fmt.Errorf("%w: viewport %+v", ErrInvalidInput, vp)
		}
	}
	if vp.Height == 0 {
		return fmt.Errorf("%w: viewport height must be positive", ErrInvalidInput)
	}
	if vp.PointGap == 0 && vp.Width <= 2*vp.PaddingX {
		return fmt.Errorf("%w: viewport needs a point gap or a width wider than its padding", ErrInvalidInput)
	}
	return nil
}

// ScaledPoint is a visible point mapped to surface coordinates. Index refers
// to the full series.
type ScaledPoint struct {
	Index int     `json:"index"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Tick is an x-axis label position
type Tick struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
}

// Scaled is a line chart ready to draw
type Scaled struct {
	Range      Range         `json:"range"`
	Points     []ScaledPoint `json:"points"`
	Ticks      []Tick        `json:"ticks"`
	MinValue   float64       `json:"min_value"`
	MaxValue   float64       `json:"max_value"`
	ValueRange float64       `json:"value_range"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Baseline   float64       `json:"baseline"`
	Polyline   string        `json:"polyline"`
	Area       string        `json:"area"`
	Summary    SeriesSummary `json:"summary"`
}

// Scale maps the points of s inside r onto vp. The minimum visible value sits
// on the baseline and the maximum on the plot top. When every visible value is
// equal the points sit at mid-height. r is clamped to the series first.
func Scale(s series.Series, r Range, vp Viewport) (Scaled, error) {
	if len(s) == 0 {
		return Scaled{}, ErrEmptySeries
	}
	if err := vp.validate(); err != nil {
		return Scaled{}, err
	}

	r, err := r.Clamp(len(s))
	if err != nil {
		return Scaled{}, err
	}
	visible := s.Window(r.Start, r.End)

	values := visible.Values()
	if !formulas.AllFinite(values) {
		return Scaled{}, fmt.Errorf("%w: series contains non-finite values", ErrInvalidInput)
	}
	minV := formulas.Min(values)
	maxV := formulas.Max(values)
	valueRange := maxV - minV
	if !formulas.IsFinite(valueRange) {
		return Scaled{}, fmt.Errorf("%w: value range %v..%v overflows", ErrInvalidInput, minV, maxV)
	}
	flat := valueRange == 0
	if flat {
		valueRange = 1
	}

	gap := vp.PointGap
	if gap == 0 {
		if len(visible) > 1 {
			gap = (vp.Width - 2*vp.PaddingX) / float64(len(visible)-1)
		}
	}
	width := vp.Width
	if width == 0 {
		width = 2*vp.PaddingX + gap*float64(len(visible)-1)
	}
	baseline := vp.PaddingY + vp.Height

	tickEvery := vp.TickEvery
	if tickEvery <= 0 {
		tickEvery = 1
	}

	out := Scaled{
		Range:      r,
		Points:     make([]ScaledPoint, len(visible)),
		MinValue:   minV,
		MaxValue:   maxV,
		ValueRange: valueRange,
		Width:      width,
		Height:     baseline + vp.PaddingY,
		Baseline:   baseline,
	}

	line := make([]Vec, len(visible))
	for i, p := range visible {
		norm := 0.5
		if !flat {
			norm = (p.Value - minV) / valueRange
		}
		v := Vec{
			X: vp.PaddingX + float64(i)*gap,
			Y: vp.PaddingY + vp.Height - norm*vp.Height,
		}
		line[i] = v
		out.Points[i] = ScaledPoint{Index: r.Start + i, Label: p.Label, Value: p.Value, X: v.X, Y: v.Y}
		if i%tickEvery == 0 {
			out.Ticks = append(out.Ticks, Tick{Label: p.Label, X: v.X})
		}
	}

	area := make([]Vec, 0, len(line)+2)
	area = append(area, Vec{X: line[0].X, Y: baseline})
	area = append(area, line...)
	area = append(area, Vec{X: line[len(line)-1].X, Y: baseline})

	out.Polyline = Points(line)
	out.Area = Points(area)

	out.Summary, err = SummarizeSeries(visible)
	if err != nil {
		return Scaled{}, err
	}
	return out, nil
}
