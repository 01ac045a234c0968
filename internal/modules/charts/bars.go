package charts

import (
	"fmt"
	"math"

	"github.com/simplainvest/wealthboard/internal/modules/series"
	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// ReferenceRatios are the horizontal guide lines drawn behind vertical bars
var ReferenceRatios = []float64{0.25, 0.5, 0.75}

// BarLayout sizes a vertical bar chart
type BarLayout struct {
	BarWidth   float64 `json:"bar_width"`
	BarGap     float64 `json:"bar_gap"`
	PlotHeight float64 `json:"plot_height"`
	PaddingX   float64 `json:"padding_x"`
}

// DefaultBarLayout matches the weekly inflow bar chart
func DefaultBarLayout() BarLayout {
	return BarLayout{BarWidth: 32, BarGap: 24, PlotHeight: 240, PaddingX: 8}
}

// Bar is one vertical bar. Y is the top edge; bars grow up from the
// baseline at PlotHeight. Negative values are drawn by magnitude and flagged.
type Bar struct {
	Index    int     `json:"index"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Negative bool    `json:"negative"`
}

// ReferenceLine is a horizontal guide at a fraction of the plot height
type ReferenceLine struct {
	Ratio float64 `json:"ratio"`
	Y     float64 `json:"y"`
}

// Bars is a vertical bar chart ready to draw
type Bars struct {
	Bars           []Bar           `json:"bars"`
	ReferenceLines []ReferenceLine `json:"reference_lines"`
	Width          float64         `json:"width"`
	Height         float64         `json:"height"`
	MaxValue       float64         `json:"max_value"`
	Total          float64         `json:"total"`
}

// ComputeBars scales bar heights against the largest magnitude. A series of
// zeros yields zero-height bars.
func ComputeBars(s series.Series, layout BarLayout) (Bars, error) {
	if len(s) == 0 {
		return Bars{}, ErrEmptySeries
	}
	if !(layout.PlotHeight > 0) || layout.BarWidth <= 0 || layout.BarGap < 0 || layout.PaddingX < 0 {
		return Bars{}, ErrInvalidInput
	}

	values := s.Values()
	if !formulas.AllFinite(values) {
		return Bars{}, ErrInvalidInput
	}
	maxAbs := formulas.MaxAbs(values)

	out := Bars{
		Bars:     make([]Bar, len(s)),
		Width:    2*layout.PaddingX + float64(len(s))*layout.BarWidth + float64(len(s)-1)*layout.BarGap,
		Height:   layout.PlotHeight,
		MaxValue: formulas.Max(values),
		Total:    formulas.Sum(values),
	}
	if !formulas.IsFinite(out.Total) {
		return Bars{}, fmt.Errorf("%w: bar total overflows", ErrInvalidInput)
	}

	for i, p := range s {
		h := 0.0
		if frac, ok := formulas.SafeDiv(math.Abs(p.Value), maxAbs); ok {
			h = frac * layout.PlotHeight
		}
		out.Bars[i] = Bar{
			Index:    i,
			Label:    p.Label,
			Value:    p.Value,
			X:        layout.PaddingX + float64(i)*(layout.BarWidth+layout.BarGap),
			Y:        layout.PlotHeight - h,
			Width:    layout.BarWidth,
			Height:   h,
			Negative: p.Value < 0,
		}
	}

	for _, ratio := range ReferenceRatios {
		out.ReferenceLines = append(out.ReferenceLines, ReferenceLine{
			Ratio: ratio,
			Y:     layout.PlotHeight * (1 - ratio),
		})
	}

	return out, nil
}

// HorizontalBar is one row of a horizontal bar list
type HorizontalBar struct {
	Label         string  `json:"label"`
	Value         float64 `json:"value"`
	WidthFraction float64 `json:"width_fraction"`
}

// ComputeHorizontalBars sizes each row as a fraction of the largest value.
// Negative rows and a non-positive maximum collapse to zero width.
func ComputeHorizontalBars(s series.Series) ([]HorizontalBar, error) {
	if len(s) == 0 {
		return nil, ErrEmptySeries
	}
	values := s.Values()
	if !formulas.AllFinite(values) {
		return nil, ErrInvalidInput
	}
	maxV := formulas.Max(values)

	out := make([]HorizontalBar, len(s))
	for i, p := range s {
		frac := 0.0
		if maxV > 0 {
			frac = formulas.Clamp(p.Value/maxV, 0, 1)
		}
		out[i] = HorizontalBar{Label: p.Label, Value: p.Value, WidthFraction: frac}
	}
	return out, nil
}
