package formulas

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimals every displayed ratio is rounded to.
const DisplayPlaces int32 = 1

// Round rounds v to the given number of decimal places (half away from zero).
// Non-finite input rounds to 0.
func Round(v float64, places int32) float64 {
	if !IsFinite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round1 rounds v with the display policy (one decimal)
func Round1(v float64) float64 {
	return Round(v, DisplayPlaces)
}

// RoundPercentages rounds a set of percentages to the given places using the
// largest-remainder method, so the rounded values sum to the rounded total of
// the inputs (100 for a complete share set). Every output is either the floor
// or the ceiling of its input at that precision.
func RoundPercentages(pcts []float64, places int32) []float64 {
	out := make([]float64, len(pcts))
	if len(pcts) == 0 {
		return out
	}

	type share struct {
		idx   int
		floor decimal.Decimal
		rem   decimal.Decimal
	}

	shares := make([]share, len(pcts))
	total := decimal.Zero
	floorSum := decimal.Zero
	for i, p := range pcts {
		if !IsFinite(p) || p < 0 {
			p = 0
		}
		d := decimal.NewFromFloat(p).Shift(places)
		fl := d.Floor()
		shares[i] = share{idx: i, floor: fl, rem: d.Sub(fl)}
		total = total.Add(d)
		floorSum = floorSum.Add(fl)
	}

	deficit := total.Round(0).Sub(floorSum).IntPart()

	order := make([]share, len(shares))
	copy(order, shares)
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].rem.GreaterThan(order[b].rem)
	})

	for k, s := range order {
		v := s.floor
		if int64(k) < deficit {
			v = v.Add(decimal.NewFromInt(1))
		}
		out[s.idx] = v.Shift(-places).InexactFloat64()
	}

	return out
}

// SharePercentages returns each value's share of the total as a display-rounded
// percentage. It reports false when the total is not positive.
func SharePercentages(values []float64) ([]float64, bool) {
	total := Sum(values)
	if !(total > 0) || !IsFinite(total) {
		return nil, false
	}

	raw := make([]float64, len(values))
	for i, v := range values {
		p, ok := Percent(v, total)
		if !ok {
			return nil, false
		}
		raw[i] = p
	}

	return RoundPercentages(raw, DisplayPlaces), true
}
