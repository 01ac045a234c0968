package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplainvest/wealthboard/internal/clients/wealthfeed"
	"github.com/simplainvest/wealthboard/internal/events"
	"github.com/simplainvest/wealthboard/internal/modules/charts"
	"github.com/simplainvest/wealthboard/internal/modules/series"
)

// fakeFeed serves canned records per endpoint. When block is set every call
// signals started, then waits for its context or for release.
type fakeFeed struct {
	mu      sync.Mutex
	records map[string][]series.RawRecord
	errs    map[string]error
	stale   bool
	block   bool
	started chan string
	release chan struct{}
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		records: map[string][]series.RawRecord{
			wealthfeed.EndpointCustody: {custodyRecord()},
			wealthfeed.EndpointWeekly:  weeklyRecords(),
		},
		errs:    make(map[string]error),
		started: make(chan string, 8),
		release: make(chan struct{}),
	}
}

func (f *fakeFeed) Fetch(ctx context.Context, endpoint string) (wealthfeed.Result, error) {
	f.mu.Lock()
	block := f.block
	recs := f.records[endpoint]
	err := f.errs[endpoint]
	stale := f.stale
	f.mu.Unlock()

	if block {
		f.started <- endpoint
		select {
		case <-ctx.Done():
			return wealthfeed.Result{}, ctx.Err()
		case <-f.release:
		}
	}
	if err != nil {
		return wealthfeed.Result{}, err
	}
	return wealthfeed.Result{Endpoint: endpoint, Records: recs, Stale: stale, FetchedAt: time.Now()}, nil
}

func (f *fakeFeed) set(fn func(f *fakeFeed)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func weeklyRecords() []series.RawRecord {
	return []series.RawRecord{
		{FieldWeek: "1.Março", FieldInflow: 1_000_000.0, FieldAccumulated: 1_000_000.0},
		{FieldWeek: "2.Março", FieldInflow: 2_500_000.0, FieldAccumulated: 3_500_000.0},
		{FieldWeek: "3.Março", FieldInflow: -500_000.0, FieldAccumulated: 3_000_000.0},
		{FieldWeek: "4.Março", FieldInflow: "1500000", FieldAccumulated: 4_500_000.0},
		{FieldWeek: "bad", FieldInflow: 1.0, FieldAccumulated: 1.0},
	}
}

type testEnv struct {
	svc  *Service
	feed *fakeFeed
	bus  *events.Bus
}

func setupTestService(t *testing.T, activity Activity) *testEnv {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	normalizer, err := series.NewNormalizer(series.Millions, log)
	require.NoError(t, err)

	feed := newFakeFeed()
	bus := events.NewBus()
	svc := NewService(feed, normalizer, NewRangeStore(nil, log), activity, events.NewManager(bus, log), log)
	t.Cleanup(svc.Close)

	return &testEnv{svc: svc, feed: feed, bus: bus}
}

func TestRefreshAll_BuildsSnapshot(t *testing.T) {
	env := setupTestService(t, DefaultActivity())

	var mu sync.Mutex
	seen := make(map[events.EventType]int)
	env.bus.Subscribe(func(e *events.Event) {
		mu.Lock()
		seen[e.Type]++
		mu.Unlock()
	}, events.DatasetUpdated, events.DashboardRefreshed, events.FeedFailed)

	snap, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Same(t, snap, env.svc.Snapshot())
	assert.Equal(t, []string{"S1 Mar", "S2 Mar", "S3 Mar", "S4 Mar"}, snap.Weekly.Labels())
	assert.Equal(t, []float64{1, 2.5, -0.5, 1.5}, snap.Weekly.Values())
	assert.Equal(t, []float64{1, 3.5, 3, 4.5}, snap.Accumulated.Values())
	assert.Equal(t, 2, snap.Dropped[DatasetWeekly])
	assert.False(t, snap.Stale[DatasetWeekly])
	assert.Empty(t, snap.Errors)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, seen[events.DatasetUpdated])
	assert.Equal(t, 1, seen[events.DashboardRefreshed])
	assert.Zero(t, seen[events.FeedFailed])
}

func TestRefreshAll_FailedDatasetKeepsPreviousData(t *testing.T) {
	env := setupTestService(t, DefaultActivity())

	first, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	env.feed.set(func(f *fakeFeed) {
		f.errs[wealthfeed.EndpointCustody] = errors.New("connection refused")
		f.records[wealthfeed.EndpointWeekly] = weeklyRecords()[:2]
		f.stale = true
	})

	second, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, first.Custody, second.Custody)
	assert.Contains(t, second.Errors[DatasetCustody], "connection refused")
	assert.Len(t, second.Weekly, 2)
	assert.True(t, second.Stale[DatasetWeekly])
	assert.True(t, second.Stale[DatasetCustody])
	assert.False(t, second.RefreshedAt.Before(first.RefreshedAt))

	donut, err := env.svc.Donut()
	require.NoError(t, err)
	assert.True(t, donut.Stale)
}

func TestRefreshAll_FailureKeepsDataFlaggedStale(t *testing.T) {
	env := setupTestService(t, DefaultActivity())

	first, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)
	require.False(t, first.Stale[DatasetWeekly])

	env.feed.set(func(f *fakeFeed) {
		f.errs[wealthfeed.EndpointCustody] = errors.New("down")
		f.errs[wealthfeed.EndpointWeekly] = errors.New("down")
	})

	second, err := env.svc.RefreshAll(context.Background())
	require.Error(t, err)
	require.NotNil(t, second)

	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.RefreshedAt.Equal(first.RefreshedAt))
	assert.True(t, second.Stale[DatasetCustody])
	assert.True(t, second.Stale[DatasetWeekly])
	assert.Len(t, second.Weekly, 4)

	bars, err := env.svc.WeeklyBars()
	require.NoError(t, err)
	assert.True(t, bars.Stale)

	line, err := env.svc.AccumulatedLine()
	require.NoError(t, err)
	assert.True(t, line.Stale)

	env.feed.set(func(f *fakeFeed) { f.errs = make(map[string]error) })
	third, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.False(t, third.Stale[DatasetCustody])
	assert.False(t, third.Stale[DatasetWeekly])
	assert.False(t, third.RefreshedAt.Before(first.RefreshedAt))
}

func TestRefreshAll_AllDatasetsFail(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	env.feed.set(func(f *fakeFeed) {
		f.errs[wealthfeed.EndpointCustody] = errors.New("down")
		f.errs[wealthfeed.EndpointWeekly] = errors.New("down")
	})

	snap, err := env.svc.RefreshAll(context.Background())
	require.Error(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Errors, 2)

	_, err = env.svc.Donut()
	assert.True(t, charts.IsNoData(err))
}

func TestRefreshAll_NewestRequestWins(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	env.feed.set(func(f *fakeFeed) { f.block = true })

	firstErr := make(chan error, 1)
	go func() {
		_, err := env.svc.RefreshAll(context.Background())
		firstErr <- err
	}()
	<-env.feed.started
	<-env.feed.started

	env.feed.set(func(f *fakeFeed) { f.block = false })
	snap, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	assert.Same(t, snap, env.svc.Snapshot())
}

func TestRefreshAll_OverlappingRefreshesPublishNewest(t *testing.T) {
	env := setupTestService(t, DefaultActivity())

	var mu sync.Mutex
	var published []string
	env.bus.Subscribe(func(e *events.Event) {
		mu.Lock()
		published = append(published, e.Data["snapshot_id"].(string))
		mu.Unlock()
	}, events.DashboardRefreshed)

	env.feed.set(func(f *fakeFeed) { f.block = true })

	olderErr := make(chan error, 1)
	go func() {
		_, err := env.svc.RefreshAll(context.Background())
		olderErr <- err
	}()
	<-env.feed.started
	<-env.feed.started

	type outcome struct {
		snap *Snapshot
		err  error
	}
	newer := make(chan outcome, 1)
	go func() {
		snap, err := env.svc.RefreshAll(context.Background())
		newer <- outcome{snap, err}
	}()
	<-env.feed.started
	<-env.feed.started

	assert.ErrorIs(t, <-olderErr, ErrSuperseded)

	close(env.feed.release)
	got := <-newer
	require.NoError(t, got.err)
	assert.Same(t, got.snap, env.svc.Snapshot())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{got.snap.ID}, published)
}

func TestRefreshAll_AfterClose(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	env.svc.Close()

	_, err := env.svc.RefreshAll(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, env.svc.Snapshot())
}

func TestViews_BeforeFirstRefresh(t *testing.T) {
	env := setupTestService(t, DefaultActivity())

	_, err := env.svc.Dashboard()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.True(t, charts.IsNoData(err))

	_, err = env.svc.WeeklyBars()
	assert.True(t, charts.IsNoData(err))

	// activity charts do not depend on the feed
	_, err = env.svc.Funnel()
	assert.NoError(t, err)
}

func TestDonut(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	_, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	donut, err := env.svc.Donut()
	require.NoError(t, err)

	require.Len(t, donut.Slices, 5)
	assert.Equal(t, 1_000_000_000.0, donut.Total)
	assert.Equal(t, "R$ 1 bi", donut.TotalFormatted)
	assert.Equal(t, "BTG Brasil", donut.Slices[0].Label)
	assert.Equal(t, 40.0, donut.Slices[0].Percentage)
	assert.Equal(t, "R$ 400 mi", donut.Slices[0].FormattedValue)

	var sum float64
	for _, s := range donut.Slices {
		sum += s.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestWeeklyBars(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	_, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	view, err := env.svc.WeeklyBars()
	require.NoError(t, err)

	assert.Equal(t, charts.Range{Start: 0, End: 3}, view.Range)
	assert.Equal(t, 4, view.Length)
	require.Len(t, view.Bars.Bars, 4)
	assert.True(t, view.Bars.Bars[2].Negative)
	assert.Equal(t, 2.5, view.LargestInflow.Value)
	assert.Equal(t, "R$ 2,5 mi", view.LargestInflow.Formatted)
	assert.Equal(t, 4.5, view.AnnualTotal.Value)
	assert.Equal(t, "R$ 4,5 mi", view.AnnualTotal.Formatted)

	_, err = env.svc.MoveRangeStart(ChartWeeklyInflow, 2)
	require.NoError(t, err)

	view, err = env.svc.WeeklyBars()
	require.NoError(t, err)
	assert.Len(t, view.Bars.Bars, 2)
	assert.Equal(t, 1.5, view.LargestInflow.Value)
	assert.Equal(t, 4.5, view.AnnualTotal.Value)
}

func TestAccumulatedLine(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	_, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	view, err := env.svc.AccumulatedLine()
	require.NoError(t, err)

	assert.Len(t, view.Line.Points, 4)
	assert.Equal(t, 4.5, view.Current.Value)
	require.NotNil(t, view.Growth)
	assert.Equal(t, 350.0, *view.Growth)
}

func TestRangeOperations(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	_, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	var changed []events.RangeChangedData
	env.bus.Subscribe(func(e *events.Event) {
		if d, ok := e.GetTypedData().(*events.RangeChangedData); ok {
			changed = append(changed, *d)
		}
	}, events.RangeChanged)

	r, err := env.svc.SetRange(ChartAccumulatedInflow, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, charts.Range{Start: 1, End: 2}, r)

	r, err = env.svc.MoveRangeEnd(ChartAccumulatedInflow, 0)
	require.NoError(t, err)
	assert.Equal(t, charts.Range{Start: 1, End: 2}, r)

	r, err = env.svc.MoveRangeEnd(ChartAccumulatedInflow, 99)
	require.NoError(t, err)
	assert.Equal(t, charts.Range{Start: 1, End: 3}, r)

	_, err = env.svc.SetRange(ChartAccumulatedInflow, 3, 1)
	assert.ErrorIs(t, err, charts.ErrInvalidInput)

	_, err = env.svc.SetRange(ChartFunnel, 0, 1)
	assert.ErrorIs(t, err, ErrNotRanged)

	_, err = env.svc.Range("nope")
	assert.ErrorIs(t, err, ErrUnknownChart)

	r, err = env.svc.ResetRange(ChartAccumulatedInflow)
	require.NoError(t, err)
	assert.Equal(t, charts.Range{Start: 0, End: 3}, r)

	require.Len(t, changed, 4)
	assert.Equal(t, ChartAccumulatedInflow, changed[0].Chart)
	assert.Equal(t, 3, changed[2].End)
}

func TestRange_SurvivesRefresh(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	_, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	_, err = env.svc.SetRange(ChartWeeklyInflow, 1, 2)
	require.NoError(t, err)

	_, err = env.svc.RefreshAll(context.Background())
	require.NoError(t, err)
	r, err := env.svc.Range(ChartWeeklyInflow)
	require.NoError(t, err)
	assert.Equal(t, charts.Range{Start: 1, End: 2}, r)

	env.feed.set(func(f *fakeFeed) { f.records[wealthfeed.EndpointWeekly] = weeklyRecords()[:2] })
	_, err = env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	r, err = env.svc.Range(ChartWeeklyInflow)
	require.NoError(t, err)
	assert.Equal(t, charts.Range{Start: 0, End: 1}, r)
}

func TestDashboard_ReportsChartErrors(t *testing.T) {
	activity := DefaultActivity()
	activity.Funnel = []charts.FunnelStage{{Stage: "a", Value: 0}, {Stage: "b", Value: 0}}
	activity.Gauges = append(activity.Gauges, charts.GaugeSpec{Label: "Broken", Value: 1, Max: 0})

	env := setupTestService(t, activity)
	env.feed.set(func(f *fakeFeed) {
		f.records[wealthfeed.EndpointWeekly] = []series.RawRecord{
			{FieldWeek: "1.Abril", FieldInflow: 1.0},
			{FieldWeek: "2.Abril", FieldInflow: 2.0},
		}
	})
	_, err := env.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	view, err := env.svc.Dashboard()
	require.NoError(t, err)

	assert.NotNil(t, view.Custody)
	assert.NotNil(t, view.Weekly)
	assert.Nil(t, view.Accumulated)
	assert.Contains(t, view.ChartErrors, ChartAccumulatedInflow)
	assert.Nil(t, view.Funnel)
	assert.Contains(t, view.ChartErrors, ChartFunnel)

	require.NotNil(t, view.Gauges)
	assert.Len(t, view.Gauges.Gauges, 4)
	assert.Contains(t, view.Gauges.Errors, "Broken")
	assert.Len(t, view.KPIs, 5)
}

func TestFunnelAndGauges(t *testing.T) {
	env := setupTestService(t, DefaultActivity())

	funnel, err := env.svc.Funnel()
	require.NoError(t, err)
	assert.Equal(t, 28.6, funnel.Summary.OverallConversion)
	assert.Equal(t, charts.PerformanceExcellent, funnel.Summary.Performance)
	require.Len(t, funnel.Funnel.Stages, 3)

	gauges, err := env.svc.Gauges()
	require.NoError(t, err)
	require.Len(t, gauges.Gauges, 4)
	assert.Equal(t, 84.7, gauges.Gauges[0].Percentage)

	v, err := env.svc.Chart(ChartGauges)
	require.NoError(t, err)
	assert.IsType(t, &GaugesView{}, v)

	_, err = env.svc.Chart("radar")
	assert.ErrorIs(t, err, ErrUnknownChart)
}

func TestRefreshJob(t *testing.T) {
	env := setupTestService(t, DefaultActivity())
	job := NewRefreshJob(env.svc, time.Second, zerolog.Nop())

	assert.Equal(t, "dashboard_refresh", job.Name())
	require.NoError(t, job.Run())
	assert.NotNil(t, env.svc.Snapshot())
}
