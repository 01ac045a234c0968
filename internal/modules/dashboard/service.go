package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/simplainvest/wealthboard/internal/clients/wealthfeed"
	"github.com/simplainvest/wealthboard/internal/events"
	"github.com/simplainvest/wealthboard/internal/modules/charts"
	"github.com/simplainvest/wealthboard/internal/modules/series"
	"github.com/simplainvest/wealthboard/pkg/formulas"
)

// Chart names
const (
	ChartCustodyDonut      = "custody-donut"
	ChartWeeklyInflow      = "weekly-inflow"
	ChartAccumulatedInflow = "accumulated-inflow"
	ChartGauges            = "gauges"
	ChartFunnel            = "funnel"
)

// Datasets fetched from the feed
const (
	DatasetCustody = "custody"
	DatasetWeekly  = "weekly"
)

// AllCharts lists every chart in display order
var AllCharts = []string{
	ChartCustodyDonut,
	ChartWeeklyInflow,
	ChartAccumulatedInflow,
	ChartGauges,
	ChartFunnel,
}

const moduleName = "dashboard"

var (
	// ErrNotLoaded is returned by views before the first successful refresh
	ErrNotLoaded = fmt.Errorf("dashboard data not loaded: %w", charts.ErrEmptySeries)
	// ErrUnknownChart is returned for chart names outside AllCharts
	ErrUnknownChart = errors.New("unknown chart")
	// ErrNotRanged is returned when a range operation targets a chart without
	// a brush
	ErrNotRanged = errors.New("chart has no range selection")
)

// Feed fetches raw records for an endpoint
type Feed interface {
	Fetch(ctx context.Context, endpoint string) (wealthfeed.Result, error)
}

// Snapshot is the data behind one dashboard refresh. Datasets that failed to
// load keep the figures of the previous snapshot and are flagged stale.
// RefreshedAt only advances when at least one dataset was loaded.
type Snapshot struct {
	ID          string            `json:"id"`
	RefreshedAt time.Time         `json:"refreshed_at"`
	Custody     *CustodySnapshot  `json:"custody,omitempty"`
	Weekly      series.Series     `json:"weekly"`
	Accumulated series.Series     `json:"accumulated"`
	Stale       map[string]bool   `json:"stale"`
	Errors      map[string]string `json:"errors,omitempty"`
	Dropped     map[string]int    `json:"dropped,omitempty"`
}

// Service owns the dashboard state
type Service struct {
	feed       Feed
	normalizer *series.Normalizer
	ranges     *RangeStore
	events     *events.Manager
	activity   Activity

	refreshLoader Loader[refreshResults]

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	snap *Snapshot

	log zerolog.Logger
}

// NewService creates the dashboard service. eventManager may be nil.
func NewService(
	feed Feed,
	normalizer *series.Normalizer,
	ranges *RangeStore,
	activity Activity,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		feed:       feed,
		normalizer: normalizer,
		ranges:     ranges,
		events:     eventManager,
		activity:   activity,
		ctx:        ctx,
		cancel:     cancel,
		log:        log.With().Str("service", "dashboard").Logger(),
	}
}

// Close cancels in-flight loads. Later refreshes fail with context.Canceled.
func (s *Service) Close() {
	s.cancel()
	s.refreshLoader.Close()
}

// Snapshot returns the current snapshot, or nil before the first refresh
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

type datasetResult struct {
	result wealthfeed.Result
	err    error
}

type refreshResults struct {
	custody datasetResult
	weekly  datasetResult
}

// RefreshAll reloads every dataset concurrently and publishes a new snapshot.
// Concurrent refreshes supersede each other as a whole: the most recently
// issued one publishes, older ones return ErrSuperseded. A dataset that fails
// keeps its previous data and is reported in Snapshot.Errors; an error is
// returned only when the refresh was superseded or cancelled, or when no
// dataset could be loaded.
func (s *Service) RefreshAll(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	res, err := s.refreshLoader.Load(ctx, s.fetchAll)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	snap := s.nextSnapshot()
	var updated []string
	if s.applyCustody(snap, res.custody) {
		updated = append(updated, DatasetCustody)
	}
	if s.applyWeekly(snap, res.weekly) {
		updated = append(updated, DatasetWeekly)
	}
	if len(updated) > 0 {
		snap.RefreshedAt = time.Now()
	}
	s.snap = snap
	s.mu.Unlock()

	stale := snap.Stale[DatasetCustody] || snap.Stale[DatasetWeekly]
	s.emit(&events.DashboardRefreshedData{
		SnapshotID: snap.ID,
		Datasets:   updated,
		Stale:      stale,
	})

	s.log.Info().
		Str("snapshot_id", snap.ID).
		Strs("updated", updated).
		Bool("stale", stale).
		Msg("Dashboard refreshed")

	if len(updated) == 0 {
		return snap, fmt.Errorf("dashboard refresh failed: %s: %s; %s: %s",
			DatasetCustody, snap.Errors[DatasetCustody], DatasetWeekly, snap.Errors[DatasetWeekly])
	}
	return snap, nil
}

// fetchAll loads both datasets. Per-dataset failures are kept in the results;
// only cancellation of ctx fails the whole load.
func (s *Service) fetchAll(ctx context.Context) (refreshResults, error) {
	var out refreshResults

	var g errgroup.Group
	g.Go(func() error {
		out.custody = s.fetch(ctx, wealthfeed.EndpointCustody)
		return nil
	})
	g.Go(func() error {
		out.weekly = s.fetch(ctx, wealthfeed.EndpointWeekly)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return refreshResults{}, err
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, endpoint string) datasetResult {
	res, err := s.feed.Fetch(ctx, endpoint)
	return datasetResult{result: res, err: err}
}

// nextSnapshot copies the current snapshot under a fresh identity. Callers
// hold s.mu.
func (s *Service) nextSnapshot() *Snapshot {
	next := &Snapshot{
		ID:      uuid.New().String(),
		Stale:   make(map[string]bool),
		Errors:  make(map[string]string),
		Dropped: make(map[string]int),
	}
	if prev := s.snap; prev != nil {
		next.RefreshedAt = prev.RefreshedAt
		next.Custody = prev.Custody
		next.Weekly = prev.Weekly
		next.Accumulated = prev.Accumulated
		for k, v := range prev.Stale {
			next.Stale[k] = v
		}
		for k, v := range prev.Dropped {
			next.Dropped[k] = v
		}
	}
	return next
}

func (s *Service) applyCustody(snap *Snapshot, res datasetResult) bool {
	if res.err != nil {
		s.failed(snap, DatasetCustody, wealthfeed.EndpointCustody, res.err)
		return false
	}

	custody, err := ParseCustody(res.result.Records)
	if err != nil {
		s.failed(snap, DatasetCustody, wealthfeed.EndpointCustody, err)
		return false
	}
	if len(custody.Missing) > 0 {
		s.log.Warn().Strs("fields", custody.Missing).Msg("Custody snapshot has unusable fields")
	}

	snap.Custody = custody
	snap.Stale[DatasetCustody] = res.result.Stale
	snap.Dropped[DatasetCustody] = len(custody.Missing)

	s.emit(&events.DatasetUpdatedData{
		Dataset: DatasetCustody,
		Points:  len(custody.Values) - len(custody.Missing),
		Dropped: len(custody.Missing),
		Stale:   res.result.Stale,
	})
	return true
}

func (s *Service) applyWeekly(snap *Snapshot, res datasetResult) bool {
	if res.err != nil {
		s.failed(snap, DatasetWeekly, wealthfeed.EndpointWeekly, res.err)
		return false
	}

	label := series.WeekLabel(FieldWeek)
	inflow, inflowErr := s.normalizer.Normalize(res.result.Records, series.Field(FieldInflow), label)
	accumulated, accErr := s.normalizer.Normalize(res.result.Records, series.Field(FieldAccumulated), label)
	if inflowErr != nil && accErr != nil {
		s.failed(snap, DatasetWeekly, wealthfeed.EndpointWeekly, errors.Join(inflowErr, accErr))
		return false
	}

	// an unusable column empties its chart rather than keeping stale points
	snap.Weekly = inflow.Series
	snap.Accumulated = accumulated.Series
	snap.Stale[DatasetWeekly] = res.result.Stale
	dropped := len(inflow.Dropped) + len(accumulated.Dropped)
	snap.Dropped[DatasetWeekly] = dropped

	s.emit(&events.DatasetUpdatedData{
		Dataset: DatasetWeekly,
		Points:  len(inflow.Series),
		Dropped: dropped,
		Stale:   res.result.Stale,
	})
	return true
}

func (s *Service) failed(snap *Snapshot, dataset, endpoint string, err error) {
	snap.Errors[dataset] = err.Error()
	if snap.holds(dataset) {
		snap.Stale[dataset] = true
	}
	s.log.Error().Err(err).Str("dataset", dataset).Msg("Failed to refresh dataset")
	s.emit(&events.FeedFailedData{
		Dataset:  dataset,
		Endpoint: endpoint,
		Error:    err.Error(),
	})
}

// holds reports whether the snapshot carries figures for dataset
func (snap *Snapshot) holds(dataset string) bool {
	switch dataset {
	case DatasetCustody:
		return snap.Custody != nil
	case DatasetWeekly:
		return len(snap.Weekly) > 0 || len(snap.Accumulated) > 0
	}
	return false
}

func (s *Service) emit(data events.EventData) {
	if s.events != nil {
		s.events.EmitTyped(moduleName, data)
	}
}

// DonutView is the broker distribution chart
type DonutView struct {
	Title          string                     `json:"title"`
	Slices         []charts.ArcPathDescriptor `json:"slices"`
	Total          float64                    `json:"total"`
	TotalFormatted string                     `json:"total_formatted"`
	Stale          bool                       `json:"stale"`
}

// Highlight is a labelled figure shown next to a chart
type Highlight struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// BarsView is the weekly inflow chart
type BarsView struct {
	Title         string               `json:"title"`
	Range         charts.Range         `json:"range"`
	Length        int                  `json:"length"`
	Bars          charts.Bars          `json:"bars"`
	Summary       charts.SeriesSummary `json:"summary"`
	LargestInflow Highlight            `json:"largest_inflow"`
	AnnualTotal   Highlight            `json:"annual_total"`
	Stale         bool                 `json:"stale"`
}

// LineView is the accumulated inflow chart
type LineView struct {
	Title   string        `json:"title"`
	Length  int           `json:"length"`
	Line    charts.Scaled `json:"line"`
	Current Highlight     `json:"current"`
	Growth  *float64      `json:"growth"`
	Stale   bool          `json:"stale"`
}

// GaugesView is the activity gauge row
type GaugesView struct {
	Gauges []charts.Gauge    `json:"gauges"`
	Errors map[string]string `json:"errors,omitempty"`
}

// FunnelView is the sales funnel
type FunnelView struct {
	Title   string               `json:"title"`
	Funnel  charts.Funnel        `json:"funnel"`
	Summary charts.FunnelSummary `json:"summary"`
}

// DashboardView is every chart of the page. Charts that cannot be drawn are
// nil and listed in ChartErrors.
type DashboardView struct {
	SnapshotID  string            `json:"snapshot_id"`
	RefreshedAt time.Time         `json:"refreshed_at"`
	KPIs        []KPI             `json:"kpis"`
	Custody     *DonutView        `json:"custody_donut"`
	Weekly      *BarsView         `json:"weekly_inflow"`
	Accumulated *LineView         `json:"accumulated_inflow"`
	Gauges      *GaugesView       `json:"gauges"`
	Funnel      *FunnelView       `json:"funnel"`
	ChartErrors map[string]string `json:"chart_errors,omitempty"`
	FeedErrors  map[string]string `json:"feed_errors,omitempty"`
	Stale       map[string]bool   `json:"stale"`
}

func (s *Service) current() (*Snapshot, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// KPIs returns the headline custody cards
func (s *Service) KPIs() ([]KPI, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return snap.Custody.KPIs(), nil
}

// Donut computes the broker distribution chart
func (s *Service) Donut() (*DonutView, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	if snap.Custody == nil {
		return nil, ErrNotLoaded
	}

	slices := snap.Custody.BrokerSlices()
	arcs, err := charts.ComputeSlices(slices, charts.DonutInnerRadius, charts.DonutOuterRadius,
		charts.WithValueFormatter(CompactBRL))
	if err != nil {
		return nil, fmt.Errorf("failed to compute custody donut: %w", err)
	}

	var total float64
	for _, sl := range slices {
		total += sl.Value
	}
	return &DonutView{
		Title:          "Distribuição por Corretora",
		Slices:         arcs,
		Total:          total,
		TotalFormatted: CompactBRL(total),
		Stale:          snap.Stale[DatasetCustody],
	}, nil
}

// WeeklyBars computes the weekly inflow chart over its selected range
func (s *Service) WeeklyBars() (*BarsView, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}

	r, err := s.ranges.Resolve(ChartWeeklyInflow, len(snap.Weekly))
	if err != nil {
		return nil, err
	}
	window := snap.Weekly.Window(r.Start, r.End)

	bars, err := charts.ComputeBars(window, charts.DefaultBarLayout())
	if err != nil {
		return nil, fmt.Errorf("failed to compute weekly bars: %w", err)
	}
	summary, err := charts.SummarizeSeries(window)
	if err != nil {
		return nil, err
	}

	largest := window[0]
	for _, p := range window[1:] {
		if p.Value > largest.Value {
			largest = p
		}
	}
	annual := formulas.Sum(snap.Weekly.Values())

	return &BarsView{
		Title:   "Captação Semanal",
		Range:   r,
		Length:  len(snap.Weekly),
		Bars:    bars,
		Summary: summary,
		LargestInflow: Highlight{
			Label:     "Maior Captação",
			Value:     largest.Value,
			Formatted: s.scaledBRL(largest.Value),
		},
		AnnualTotal: Highlight{
			Label:     "Total Anual",
			Value:     annual,
			Formatted: s.scaledBRL(annual),
		},
		Stale: snap.Stale[DatasetWeekly],
	}, nil
}

// AccumulatedLine computes the accumulated inflow chart over its selected
// range
func (s *Service) AccumulatedLine() (*LineView, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}

	r, err := s.ranges.Resolve(ChartAccumulatedInflow, len(snap.Accumulated))
	if err != nil {
		return nil, err
	}

	line, err := charts.Scale(snap.Accumulated, r, charts.DefaultViewport())
	if err != nil {
		return nil, fmt.Errorf("failed to scale accumulated inflow: %w", err)
	}

	return &LineView{
		Title:  "Captação Acumulada por Semana",
		Length: len(snap.Accumulated),
		Line:   line,
		Current: Highlight{
			Label:     "Acumulado Atual",
			Value:     line.Summary.Current,
			Formatted: s.scaledBRL(line.Summary.Current),
		},
		Growth: line.Summary.Growth,
		Stale:  snap.Stale[DatasetWeekly],
	}, nil
}

// Gauges computes the activity gauges. A gauge that cannot be drawn is left
// out and reported in GaugesView.Errors; the view fails only when none can.
func (s *Service) Gauges() (*GaugesView, error) {
	if len(s.activity.Gauges) == 0 {
		return nil, charts.ErrEmptySeries
	}

	view := &GaugesView{Gauges: make([]charts.Gauge, 0, len(s.activity.Gauges))}
	var firstErr error
	for _, spec := range s.activity.Gauges {
		g, err := charts.ComputeGauge(spec)
		if err != nil {
			if view.Errors == nil {
				view.Errors = make(map[string]string)
			}
			view.Errors[spec.Label] = err.Error()
			if firstErr == nil {
				firstErr = fmt.Errorf("gauge %q: %w", spec.Label, err)
			}
			continue
		}
		view.Gauges = append(view.Gauges, g)
	}
	if len(view.Gauges) == 0 {
		return nil, firstErr
	}
	return view, nil
}

// Funnel computes the sales funnel
func (s *Service) Funnel() (*FunnelView, error) {
	f, err := charts.ComputeFunnel(s.activity.Funnel)
	if err != nil {
		return nil, fmt.Errorf("failed to compute funnel: %w", err)
	}
	summary, err := charts.SummarizeFunnel(s.activity.Funnel)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize funnel: %w", err)
	}
	return &FunnelView{Title: "Funil de Vendas", Funnel: f, Summary: summary}, nil
}

// Chart computes a single chart by name
func (s *Service) Chart(name string) (interface{}, error) {
	switch name {
	case ChartCustodyDonut:
		return s.Donut()
	case ChartWeeklyInflow:
		return s.WeeklyBars()
	case ChartAccumulatedInflow:
		return s.AccumulatedLine()
	case ChartGauges:
		return s.Gauges()
	case ChartFunnel:
		return s.Funnel()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
}

// Dashboard computes every chart. It fails only before the first refresh.
func (s *Service) Dashboard() (*DashboardView, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}

	view := &DashboardView{
		SnapshotID:  snap.ID,
		RefreshedAt: snap.RefreshedAt,
		KPIs:        snap.Custody.KPIs(),
		ChartErrors: make(map[string]string),
		FeedErrors:  snap.Errors,
		Stale:       snap.Stale,
	}

	record := func(chart string, err error) {
		view.ChartErrors[chart] = err.Error()
		if !charts.IsNoData(err) {
			s.log.Warn().Err(err).Str("chart", chart).Msg("Chart could not be computed")
		}
	}

	if v, err := s.Donut(); err != nil {
		record(ChartCustodyDonut, err)
	} else {
		view.Custody = v
	}
	if v, err := s.WeeklyBars(); err != nil {
		record(ChartWeeklyInflow, err)
	} else {
		view.Weekly = v
	}
	if v, err := s.AccumulatedLine(); err != nil {
		record(ChartAccumulatedInflow, err)
	} else {
		view.Accumulated = v
	}
	if v, err := s.Gauges(); err != nil {
		record(ChartGauges, err)
	} else {
		view.Gauges = v
	}
	if v, err := s.Funnel(); err != nil {
		record(ChartFunnel, err)
	} else {
		view.Funnel = v
	}

	return view, nil
}

func (s *Service) rangedLength(chart string) (int, error) {
	snap, err := s.current()
	if err != nil {
		return 0, err
	}
	switch chart {
	case ChartWeeklyInflow:
		return len(snap.Weekly), nil
	case ChartAccumulatedInflow:
		return len(snap.Accumulated), nil
	case ChartCustodyDonut, ChartGauges, ChartFunnel:
		return 0, fmt.Errorf("%w: %q", ErrNotRanged, chart)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChart, chart)
	}
}

// Range returns the current selection of a ranged chart
func (s *Service) Range(chart string) (charts.Range, error) {
	n, err := s.rangedLength(chart)
	if err != nil {
		return charts.Range{}, err
	}
	return s.ranges.Resolve(chart, n)
}

// SetRange replaces both handles of a ranged chart
func (s *Service) SetRange(chart string, start, end int) (charts.Range, error) {
	return s.changeRange(chart, func(n int) (charts.Range, error) {
		return s.ranges.Set(chart, start, end, n)
	})
}

// MoveRangeStart drags the start handle of a ranged chart
func (s *Service) MoveRangeStart(chart string, index int) (charts.Range, error) {
	return s.changeRange(chart, func(n int) (charts.Range, error) {
		return s.ranges.MoveStart(chart, index, n)
	})
}

// MoveRangeEnd drags the end handle of a ranged chart
func (s *Service) MoveRangeEnd(chart string, index int) (charts.Range, error) {
	return s.changeRange(chart, func(n int) (charts.Range, error) {
		return s.ranges.MoveEnd(chart, index, n)
	})
}

// ResetRange restores the full range of a ranged chart
func (s *Service) ResetRange(chart string) (charts.Range, error) {
	return s.changeRange(chart, func(n int) (charts.Range, error) {
		return s.ranges.Reset(chart, n)
	})
}

func (s *Service) changeRange(chart string, fn func(length int) (charts.Range, error)) (charts.Range, error) {
	n, err := s.rangedLength(chart)
	if err != nil {
		return charts.Range{}, err
	}
	r, err := fn(n)
	if err != nil {
		return r, err
	}

	s.emit(&events.RangeChangedData{Chart: chart, Start: r.Start, End: r.End})
	s.log.Debug().Str("chart", chart).Str("range", r.String()).Msg("Range changed")
	return r, nil
}

// scaledBRL formats a normalized value back in reais
func (s *Service) scaledBRL(v float64) string {
	return CompactBRL(v * s.normalizer.Divisor())
}
