package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/simplainvest/wealthboard/internal/modules/charts"
	"github.com/simplainvest/wealthboard/internal/modules/series"
)

// Chart kinds accepted by Render
const (
	KindDonut  = "donut"
	KindPie    = "pie"
	KindGauge  = "gauge"
	KindLine   = "line"
	KindFunnel = "funnel"
	KindBars   = "bars"
)

var (
	// ErrUnknownKind is returned for a chart kind Render does not know
	ErrUnknownKind = errors.New("unknown chart kind")
	// ErrInvalidBody is returned when a request payload cannot be decoded
	ErrInvalidBody = errors.New("invalid request body")
)

type computeFunc func(data []byte) (interface{}, error)

var computers = map[string]computeFunc{
	KindDonut: func(data []byte) (interface{}, error) {
		return computeSlices(data, charts.DonutInnerRadius, charts.DonutOuterRadius)
	},
	KindPie: func(data []byte) (interface{}, error) {
		return computeSlices(data, 0, charts.PieRadius)
	},
	KindGauge:  computeGauge,
	KindLine:   computeLine,
	KindFunnel: computeFunnel,
	KindBars:   computeBars,
}

// Kinds lists the chart kinds Render accepts, sorted
func Kinds() []string {
	kinds := make([]string, 0, len(computers))
	for k := range computers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Render decodes a JSON request for the given chart kind and computes its
// geometry. The result is ready to be encoded as JSON.
func Render(kind string, data []byte) (interface{}, error) {
	compute, ok := computers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return compute(data)
}

func unmarshal(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

type sliceRequest struct {
	Slices      []charts.WeightedSlice `json:"slices"`
	InnerRadius *float64               `json:"inner_radius"`
	OuterRadius *float64               `json:"outer_radius"`
	Center      *charts.Vec            `json:"center"`
}

func computeSlices(data []byte, inner, outer float64) (interface{}, error) {
	var request sliceRequest
	if err := unmarshal(data, &request); err != nil {
		return nil, err
	}
	if request.InnerRadius != nil {
		inner = *request.InnerRadius
	}
	if request.OuterRadius != nil {
		outer = *request.OuterRadius
	}

	var opts []charts.ArcOption
	if request.Center != nil {
		opts = append(opts, charts.WithCenter(request.Center.X, request.Center.Y))
	}

	slices, err := charts.ComputeSlices(request.Slices, inner, outer, opts...)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"slices": slices}, nil
}

func computeGauge(data []byte) (interface{}, error) {
	var request struct {
		charts.GaugeSpec
		Layout *charts.GaugeLayout `json:"layout"`
	}
	if err := unmarshal(data, &request); err != nil {
		return nil, err
	}

	var opts []charts.GaugeOption
	if request.Layout != nil {
		opts = append(opts, charts.WithGaugeLayout(*request.Layout))
	}
	return charts.ComputeGauge(request.GaugeSpec, opts...)
}

func computeLine(data []byte) (interface{}, error) {
	var request struct {
		Points   series.Series    `json:"points"`
		Range    *charts.Range    `json:"range"`
		Viewport *charts.Viewport `json:"viewport"`
	}
	if err := unmarshal(data, &request); err != nil {
		return nil, err
	}

	rng, err := charts.FullRange(len(request.Points))
	if err != nil {
		return nil, err
	}
	if request.Range != nil {
		if !request.Range.Valid(len(request.Points)) {
			return nil, fmt.Errorf("%w: range %s is outside the series", charts.ErrInvalidInput, request.Range.String())
		}
		rng = *request.Range
	}

	vp := charts.DefaultViewport()
	if request.Viewport != nil {
		vp = *request.Viewport
	}
	return charts.Scale(request.Points, rng, vp)
}

func computeFunnel(data []byte) (interface{}, error) {
	var request struct {
		Stages []charts.FunnelStage `json:"stages"`
		Layout *charts.FunnelLayout `json:"layout"`
	}
	if err := unmarshal(data, &request); err != nil {
		return nil, err
	}

	var opts []charts.FunnelOption
	if request.Layout != nil {
		opts = append(opts, charts.WithFunnelLayout(*request.Layout))
	}

	funnel, err := charts.ComputeFunnel(request.Stages, opts...)
	if err != nil {
		return nil, err
	}
	summary, err := charts.SummarizeFunnel(request.Stages)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"funnel":  funnel,
		"summary": summary,
	}, nil
}

func computeBars(data []byte) (interface{}, error) {
	var request struct {
		Points series.Series     `json:"points"`
		Layout *charts.BarLayout `json:"layout"`
	}
	if err := unmarshal(data, &request); err != nil {
		return nil, err
	}

	layout := charts.DefaultBarLayout()
	if request.Layout != nil {
		layout = *request.Layout
	}

	bars, err := charts.ComputeBars(request.Points, layout)
	if err != nil {
		return nil, err
	}
	horizontal, err := charts.ComputeHorizontalBars(request.Points)
	if err != nil {
		return nil, err
	}
	summary, err := charts.SummarizeSeries(request.Points)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"bars":       bars,
		"horizontal": horizontal,
		"summary":    summary,
	}, nil
}
