package charts

import (
	"fmt"

	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// MinStageWidth is the narrowest a funnel stage is drawn, as a fraction of the
// full width, so small stages stay legible.
const MinStageWidth = 0.2

// FunnelStage is one step of a conversion funnel
type FunnelStage struct {
	Stage string  `json:"stage"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// Taper names which horizontal edges of a stage are narrowed
type Taper string

const (
	TaperBottom Taper = "bottom" // first stage
	TaperTop    Taper = "top"    // last stage
	TaperBoth   Taper = "both"   // interior stages
)

// insets returns the horizontal inset of the top and bottom edge, as a fraction
// of the stage width, for each side
func (t Taper) insets() (top, bottom float64) {
	switch t {
	case TaperTop:
		return 0.1, 0
	case TaperBoth:
		return 0.1, 0.2
	default:
		return 0, 0.1
	}
}

// FunnelLayout sizes the stacked stages
type FunnelLayout struct {
	Width       float64 `json:"width"`
	StageHeight float64 `json:"stage_height"`
	Gap         float64 `json:"gap"`
}

// DefaultFunnelLayout draws stages in a 100-unit wide column
func DefaultFunnelLayout() FunnelLayout {
	return FunnelLayout{Width: 100, StageHeight: 80, Gap: 24}
}

// StageGeometry is the drawable outcome for one stage. ConversionRate is the
// percentage of the previous stage's value and is nil for the first stage or
// when the previous stage is zero.
type StageGeometry struct {
	Index          int      `json:"index"`
	Stage          string   `json:"stage"`
	Value          float64  `json:"value"`
	Color          string   `json:"color,omitempty"`
	WidthFraction  float64  `json:"width_fraction"`
	ConversionRate *float64 `json:"conversion_rate"`
	Taper          Taper    `json:"taper"`
	Vertices       []Vec    `json:"vertices"`
	Polygon        string   `json:"polygon"`
	ClipPath       string   `json:"clip_path"`
}

// Funnel is the full drawable funnel
type Funnel struct {
	Stages   []StageGeometry `json:"stages"`
	MaxValue float64         `json:"max_value"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
}

// FunnelOption customizes ComputeFunnel
type FunnelOption func(*FunnelLayout)

// WithFunnelLayout replaces the default layout
func WithFunnelLayout(l FunnelLayout) FunnelOption {
	return func(f *FunnelLayout) {
		*f = l
	}
}

// ComputeFunnel draws each stage with width proportional to its value (never
// below MinStageWidth) and computes stage-to-stage conversion. The first stage
// tapers at the bottom, the last at the top and interior stages on both
// edges; a lone stage tapers like a first stage.
func ComputeFunnel(stages []FunnelStage, opts ...FunnelOption) (Funnel, error) {
	layout := DefaultFunnelLayout()
	for _, opt := range opts {
		opt(&layout)
	}

	if len(stages) == 0 {
		return Funnel{}, ErrEmptySeries
	}
	if !(layout.Width > 0) || !(layout.StageHeight > 0) || layout.Gap < 0 {
		return Funnel{}, fmt.Errorf("%w: funnel layout %+v", ErrInvalidInput, layout)
	}

	values := make([]float64, len(stages))
	for i, s := range stages {
		if !formulas.IsFinite(s.Value) || s.Value < 0 {
			return Funnel{}, fmt.Errorf("%w: stage %q has value %v", ErrInvalidInput, s.Stage, s.Value)
		}
		values[i] = s.Value
	}

	maxV := formulas.Max(values)
	if maxV == 0 {
		return Funnel{}, fmt.Errorf("%w: every funnel stage is zero", ErrDegenerateInput)
	}

	out := Funnel{
		Stages:   make([]StageGeometry, len(stages)),
		MaxValue: maxV,
		Width:    layout.Width,
		Height:   float64(len(stages))*(layout.StageHeight+layout.Gap) - layout.Gap,
	}

	for i, s := range stages {
		frac := s.Value / maxV
		if frac < MinStageWidth {
			frac = MinStageWidth
		}

		taper := TaperBoth
		switch {
		case i == 0:
			taper = TaperBottom
		case i == len(stages)-1:
			taper = TaperTop
		}

		var conv *float64
		if i > 0 {
			if p, ok := formulas.Percent(s.Value, stages[i-1].Value); ok {
				r := formulas.Round1(p)
				conv = &r
			}
		}

		verts := stageVertices(layout, i, frac, taper)
		out.Stages[i] = StageGeometry{
			Index:          i,
			Stage:          s.Stage,
			Value:          s.Value,
			Color:          s.Color,
			WidthFraction:  frac,
			ConversionRate: conv,
			Taper:          taper,
			Vertices:       verts,
			Polygon:        Points(verts),
			ClipPath:       clipPath(taper),
		}
	}

	return out, nil
}

// OverallConversion is the last stage as a percentage of the first, rounded
// for display. It is undefined when the first stage is zero.
func OverallConversion(stages []FunnelStage) (float64, error) {
	if len(stages) == 0 {
		return 0, ErrEmptySeries
	}
	p, ok := formulas.Percent(stages[len(stages)-1].Value, stages[0].Value)
	if !ok {
		return 0, fmt.Errorf("%w: first funnel stage %q is zero", ErrDegenerateInput, stages[0].Stage)
	}
	return formulas.Round1(p), nil
}

func stageVertices(l FunnelLayout, index int, frac float64, taper Taper) []Vec {
	top, bottom := taper.insets()
	w := frac * l.Width
	x0 := (l.Width - w) / 2
	y0 := float64(index) * (l.StageHeight + l.Gap)
	y1 := y0 + l.StageHeight

	return []Vec{
		{X: x0 + top*w, Y: y0},
		{X: x0 + (1-top)*w, Y: y0},
		{X: x0 + (1-bottom)*w, Y: y1},
		{X: x0 + bottom*w, Y: y1},
	}
}

// clipPath renders the taper as a CSS clip-path polygon relative to the
// stage's own box
func clipPath(taper Taper) string {
	top, bottom := taper.insets()
	pct := func(f float64) string {
		if f == 0 {
			return "0"
		}
		return FormatCoord(f*100) + "%"
	}
	return fmt.Sprintf("polygon(%s 0, %s 0, %s 100%%, %s 100%%)",
		pct(top), pct(1-top), pct(1-bottom), pct(bottom))
}
