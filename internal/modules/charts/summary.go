package charts

import (
	"fmt"

	"github.com/simplainvest/wealthboard/internal/modules/series"
	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// ExcellentConversion is the overall conversion above which a funnel is rated
// excellent
const ExcellentConversion = 25.0

// Performance tiers
const (
	PerformanceExcellent = "excellent"
	PerformanceGood      = "good"
)

// SeriesSummary holds headline figures of a visible window. Growth is the
// percentage change from the first to the last visible point, rounded for
// display, and nil when the first point is zero.
type SeriesSummary struct {
	Count   int      `json:"count"`
	First   float64  `json:"first"`
	Current float64  `json:"current"`
	Growth  *float64 `json:"growth"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Total   float64  `json:"total"`
	Mean    float64  `json:"mean"`
}

// SummarizeSeries computes the summary of a non-empty window
func SummarizeSeries(s series.Series) (SeriesSummary, error) {
	if len(s) == 0 {
		return SeriesSummary{}, ErrEmptySeries
	}

	values := s.Values()
	out := SeriesSummary{
		Count:   len(s),
		First:   values[0],
		Current: values[len(values)-1],
		Min:     formulas.Min(values),
		Max:     formulas.Max(values),
		Total:   formulas.Sum(values),
		Mean:    formulas.Mean(values),
	}
	if !formulas.IsFinite(out.Total) || !formulas.IsFinite(out.Mean) {
		return SeriesSummary{}, fmt.Errorf("%w: series total overflows", ErrInvalidInput)
	}
	if g, ok := formulas.Growth(out.First, out.Current); ok {
		g = formulas.Round1(g)
		out.Growth = &g
	}
	return out, nil
}

// FunnelSummary holds the headline figures of a funnel
type FunnelSummary struct {
	OverallConversion float64  `json:"overall_conversion"`
	TopOfFunnel       float64  `json:"top_of_funnel"`
	BottomOfFunnel    float64  `json:"bottom_of_funnel"`
	AttendanceRate    *float64 `json:"attendance_rate"`
	Performance       string   `json:"performance"`
}

// SummarizeFunnel computes overall conversion, the second-over-first
// attendance rate and the performance tier. A zero first stage is
// ErrDegenerateInput.
func SummarizeFunnel(stages []FunnelStage) (FunnelSummary, error) {
	overall, err := OverallConversion(stages)
	if err != nil {
		return FunnelSummary{}, err
	}

	out := FunnelSummary{
		OverallConversion: overall,
		TopOfFunnel:       stages[0].Value,
		BottomOfFunnel:    stages[len(stages)-1].Value,
		Performance:       PerformanceGood,
	}
	if len(stages) > 1 {
		if p, ok := formulas.Percent(stages[1].Value, stages[0].Value); ok {
			p = formulas.Round1(p)
			out.AttendanceRate = &p
		}
	}
	if overall > ExcellentConversion {
		out.Performance = PerformanceExcellent
	}
	return out, nil
}
