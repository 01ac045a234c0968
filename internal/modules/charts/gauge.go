package charts

import (
	"fmt"
	"math"

	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// GaugeSpec is a progress indicator against a target
type GaugeSpec struct {
	Label string  `json:"label,omitempty"`
	Value float64 `json:"value"`
	Max   float64 `json:"max"`
	Color string  `json:"color,omitempty"`
}

// GaugeLayout positions the half-circle dial
type GaugeLayout struct {
	CenterX      float64 `json:"center_x"`
	CenterY      float64 `json:"center_y"`
	Radius       float64 `json:"radius"`
	NeedleLength float64 `json:"needle_length"`
}

// DefaultGaugeLayout is the 100x60 speedometer box
func DefaultGaugeLayout() GaugeLayout {
	return GaugeLayout{CenterX: 50, CenterY: 50, Radius: 40, NeedleLength: 35}
}

// Gauge is the drawable outcome of a GaugeSpec.
//
// SweepAngle is the filled part of the dial in [0,180]. NeedleAngle is the
// needle rotation in [-90,90], measured clockwise from 12 o'clock, so 0 points
// straight up. ArcLength is the full half-circle length and DashLength the
// filled prefix of it, suitable for a stroke-dasharray.
type Gauge struct {
	Label          string  `json:"label,omitempty"`
	Color          string  `json:"color,omitempty"`
	Value          float64 `json:"value"`
	Max            float64 `json:"max"`
	Clamped        bool    `json:"clamped"`
	Percentage     float64 `json:"percentage"`
	SweepFraction  float64 `json:"sweep_fraction"`
	SweepAngle     float64 `json:"sweep_angle"`
	NeedleAngle    float64 `json:"needle_angle"`
	NeedleTip      Vec     `json:"needle_tip"`
	ArcLength      float64 `json:"arc_length"`
	DashLength     float64 `json:"dash_length"`
	DashArray      string  `json:"dash_array"`
	BackgroundPath string  `json:"background_path"`
	FilledPath     string  `json:"filled_path"`
}

// GaugeOption customizes ComputeGauge
type GaugeOption func(*GaugeLayout)

// WithGaugeLayout replaces the default dial layout
func WithGaugeLayout(l GaugeLayout) GaugeOption {
	return func(g *GaugeLayout) {
		*g = l
	}
}

// ComputeGauge maps value/max onto a half-circle dial. Values outside
// [0, max] are clamped and flagged. A non-positive max or a non-finite value
// is ErrDegenerateInput.
func ComputeGauge(spec GaugeSpec, opts ...GaugeOption) (Gauge, error) {
	layout := DefaultGaugeLayout()
	for _, opt := range opts {
		opt(&layout)
	}

	if !(spec.Max > 0) || math.IsInf(spec.Max, 0) {
		return Gauge{}, fmt.Errorf("%w: gauge %q max is %v", ErrDegenerateInput, spec.Label, spec.Max)
	}
	if !formulas.IsFinite(spec.Value) {
		return Gauge{}, fmt.Errorf("%w: gauge %q value is %v", ErrDegenerateInput, spec.Label, spec.Value)
	}
	if !(layout.Radius > 0) || layout.NeedleLength < 0 {
		return Gauge{}, fmt.Errorf("%w: gauge radius %v needle %v", ErrInvalidInput, layout.Radius, layout.NeedleLength)
	}

	value := formulas.Clamp(spec.Value, 0, spec.Max)
	fraction := value / spec.Max
	sweep := fraction * 180
	needle := sweep - 90

	rad := needle * math.Pi / 180
	tip := Vec{
		X: layout.CenterX + layout.NeedleLength*math.Sin(rad),
		Y: layout.CenterY - layout.NeedleLength*math.Cos(rad),
	}

	arcLength := math.Pi * layout.Radius
	dash := fraction * arcLength

	c := Vec{X: layout.CenterX, Y: layout.CenterY}
	left := Vec{X: c.X - layout.Radius, Y: c.Y}
	right := Vec{X: c.X + layout.Radius, Y: c.Y}

	var bg Path
	bg = bg.MoveTo(left).ArcTo(layout.Radius, false, true, right)

	// the dial runs from 9 o'clock (180) clockwise through 12 (270) to 3 (360)
	var filled Path
	filled = filled.MoveTo(left).ArcTo(layout.Radius, false, true, Polar(c, layout.Radius, 180+sweep))

	return Gauge{
		Label:          spec.Label,
		Color:          spec.Color,
		Value:          value,
		Max:            spec.Max,
		Clamped:        value != spec.Value,
		Percentage:     formulas.Round1(100 * fraction),
		SweepFraction:  fraction,
		SweepAngle:     sweep,
		NeedleAngle:    needle,
		NeedleTip:      tip,
		ArcLength:      arcLength,
		DashLength:     dash,
		DashArray:      FormatCoord(dash) + " " + FormatCoord(arcLength),
		BackgroundPath: bg.String(),
		FilledPath:     filled.String(),
	}, nil
}
