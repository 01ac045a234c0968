package dashboard

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/clientdata"
	"github.com/simplainvest/wealthboard/internal/modules/charts"
)

// RangePersistence stores brush selections across restarts
type RangePersistence interface {
	Store(table, key string, data interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, dest interface{}) (bool, error)
	Delete(table, key string) error
}

type rangeRecord struct {
	Start int `msgpack:"start"`
	End   int `msgpack:"end"`
}

// RangeStore owns the brush selection of every ranged chart. Selections
// survive data refreshes and are only clamped when the new series is shorter.
type RangeStore struct {
	mu      sync.Mutex
	ranges  map[string]charts.Range
	persist RangePersistence
	log     zerolog.Logger
}

// NewRangeStore creates a store. persist is optional.
func NewRangeStore(persist RangePersistence, log zerolog.Logger) *RangeStore {
	return &RangeStore{
		ranges:  make(map[string]charts.Range),
		persist: persist,
		log:     log.With().Str("component", "range_store").Logger(),
	}
}

// Resolve returns the selection of chart reconciled with a series of the
// given length. A chart without a selection gets the full range.
func (s *RangeStore) Resolve(chart string, length int) (charts.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(chart, length, func(r charts.Range) (charts.Range, error) {
		return r.Clamp(length)
	})
}

// MoveStart moves the start handle of chart
func (s *RangeStore) MoveStart(chart string, index, length int) (charts.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(chart, length, func(r charts.Range) (charts.Range, error) {
		return r.MoveStart(index, length)
	})
}

// MoveEnd moves the end handle of chart
func (s *RangeStore) MoveEnd(chart string, index, length int) (charts.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(chart, length, func(r charts.Range) (charts.Range, error) {
		return r.MoveEnd(index, length)
	})
}

// Set replaces both handles of chart
func (s *RangeStore) Set(chart string, start, end, length int) (charts.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(chart, length, func(r charts.Range) (charts.Range, error) {
		return r.Set(start, end, length)
	})
}

// Reset drops the selection so the chart shows its full range again
func (s *RangeStore) Reset(chart string, length int) (charts.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	full, err := charts.FullRange(length)
	if err != nil {
		return charts.Range{}, err
	}

	s.ranges[chart] = full
	if s.persist != nil {
		if err := s.persist.Delete(clientdata.TableChartRanges, chart); err != nil {
			s.log.Warn().Err(err).Str("chart", chart).Msg("Failed to forget stored range")
		}
	}
	return full, nil
}

// update applies fn to the current selection and records the outcome.
// Callers hold s.mu.
func (s *RangeStore) update(chart string, length int, fn func(charts.Range) (charts.Range, error)) (charts.Range, error) {
	cur, ok := s.ranges[chart]
	if !ok {
		cur, ok = s.load(chart)
	}
	if !ok {
		full, err := charts.FullRange(length)
		if err != nil {
			return charts.Range{}, err
		}
		cur = full
	}

	next, err := fn(cur)
	if err != nil {
		return cur, err
	}

	prev, had := s.ranges[chart]
	s.ranges[chart] = next
	if !had || prev != next {
		s.save(chart, next)
	}
	return next, nil
}

func (s *RangeStore) load(chart string) (charts.Range, bool) {
	if s.persist == nil {
		return charts.Range{}, false
	}

	var rec rangeRecord
	found, err := s.persist.GetIfFresh(clientdata.TableChartRanges, chart, &rec)
	if err != nil {
		s.log.Warn().Err(err).Str("chart", chart).Msg("Failed to load stored range")
		return charts.Range{}, false
	}
	if !found {
		return charts.Range{}, false
	}
	return charts.Range{Start: rec.Start, End: rec.End}, true
}

func (s *RangeStore) save(chart string, r charts.Range) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Store(clientdata.TableChartRanges, chart, rangeRecord{Start: r.Start, End: r.End}, clientdata.TTLChartRange); err != nil {
		s.log.Warn().Err(err).Str("chart", chart).Msg("Failed to persist range")
	}
}
