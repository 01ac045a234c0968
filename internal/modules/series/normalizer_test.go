package series

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T, divisor float64) *Normalizer {
	n, err := NewNormalizer(divisor, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	return n
}

func TestNormalize_WeeklyInflowRecord(t *testing.T) {
	n := newTestNormalizer(t, Millions)

	records := []RawRecord{
		{"Semana": "3.Marco", "Captação": "1500000"},
	}

	out, err := n.Normalize(records, Field("Captação"), WeekLabel("Semana"))
	require.NoError(t, err)
	require.Len(t, out.Series, 1)
	assert.Equal(t, Point{Label: "S3 Mar", Value: 1.5}, out.Series[0])
	assert.Empty(t, out.Dropped)
}

func TestNormalize_PartialFailure(t *testing.T) {
	n := newTestNormalizer(t, Millions)

	records := []RawRecord{
		{"Semana": "1.Janeiro", "Captação": 2_000_000.0},
		{"Semana": "2Janeiro", "Captação": 1_000_000.0}, // no separator
		{"Semana": "3.Janeiro", "Captação": "abc"},      // not numeric
		{"Semana": "4.Janeiro"},                         // missing value
		{"Semana": "5.Fevereiro", "Captação": "NaN"},    // not finite
		{"Semana": ".Fevereiro", "Captação": 1.0},       // empty index
		{"Semana": "7.Fevereiro", "Captação": json.Number("-500000")},
		nil,
	}

	out, err := n.Normalize(records, Field("Captação"), WeekLabel("Semana"))
	require.NoError(t, err)

	assert.Equal(t, Series{
		{Label: "S1 Jan", Value: 2},
		{Label: "S7 Fev", Value: -0.5},
	}, out.Series)

	require.Len(t, out.Dropped, 6)
	indices := make([]int, len(out.Dropped))
	for i, d := range out.Dropped {
		indices[i] = d.Index
		assert.True(t, errors.Is(d, ErrMalformedRecord))
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 7}, indices)

	assert.True(t, errors.Is(out.Dropped[0], ErrMalformedToken))
	assert.True(t, errors.Is(out.Dropped[1], ErrFieldNotNumeric))
	assert.True(t, errors.Is(out.Dropped[2], ErrFieldMissing))
	assert.True(t, errors.Is(out.Dropped[3], ErrFieldNotFinite))
}

func TestNormalize_PreservesOrderAndDuplicates(t *testing.T) {
	n := newTestNormalizer(t, Unscaled)

	records := []RawRecord{
		{"Semana": "2.Abril", "v": 3.0},
		{"Semana": "1.Abril", "v": 1.0},
		{"Semana": "2.Abril", "v": 2.0},
	}

	out, err := n.Normalize(records, Field("v"), WeekLabel("Semana"))
	require.NoError(t, err)
	assert.Equal(t, []string{"S2 Abr", "S1 Abr", "S2 Abr"}, out.Series.Labels())
	assert.Equal(t, []float64{3, 1, 2}, out.Series.Values())
}

func TestNormalize_AllDropped(t *testing.T) {
	n := newTestNormalizer(t, Millions)

	records := []RawRecord{
		{"Semana": "x", "Captação": 1.0},
		{"Semana": "1.Maio"},
	}

	out, err := n.Normalize(records, Field("Captação"), WeekLabel("Semana"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptySeries))
	assert.Empty(t, out.Series)
	assert.Len(t, out.Dropped, 2)

	_, err = n.Normalize(nil, Field("Captação"), WeekLabel("Semana"))
	assert.True(t, errors.Is(err, ErrEmptySeries))
}

func TestNewNormalizer_RejectsBadDivisor(t *testing.T) {
	log := zerolog.Nop()
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewNormalizer(d, log)
		assert.Error(t, err, "divisor %v", d)
	}
}

func TestFieldPath(t *testing.T) {
	n := newTestNormalizer(t, Unscaled)

	extract, err := FieldPath(`$.totais["Acumulado Semana"]`)
	require.NoError(t, err)

	records := []RawRecord{
		{"Semana": "1.Junho", "totais": map[string]interface{}{"Acumulado Semana": 12.5}},
		{"Semana": "2.Junho", "totais": map[string]interface{}{}},
		{"Semana": "3.Junho", "totais": map[string]interface{}{"Acumulado Semana": "14"}},
	}

	out, err := n.Normalize(records, extract, WeekLabel("Semana"))
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5, 14}, out.Series.Values())
	assert.Len(t, out.Dropped, 1)

	_, err = FieldPath("$[")
	assert.Error(t, err)
}

func TestShortPeriod(t *testing.T) {
	assert.Equal(t, "Mar", ShortPeriod("Março"))
	assert.Equal(t, "Set", ShortPeriod("Setembro"))
	assert.Equal(t, "Q1", ShortPeriod("Q1"))
}

func TestRawRecord_Number(t *testing.T) {
	rec := RawRecord{
		"float":   12.5,
		"int64":   int64(7),
		"uint8":   uint8(3),
		"number":  json.Number("42"),
		"string":  " 1e3 ",
		"blank":   "   ",
		"bool":    true,
		"null":    nil,
		"inf":     "+Inf",
		"decimal": "1.500,00",
	}

	cases := map[string]struct {
		want float64
		err  error
	}{
		"float":   {12.5, nil},
		"int64":   {7, nil},
		"uint8":   {3, nil},
		"number":  {42, nil},
		"string":  {1000, nil},
		"blank":   {0, ErrFieldMissing},
		"bool":    {0, ErrFieldNotNumeric},
		"null":    {0, ErrFieldMissing},
		"absent":  {0, ErrFieldMissing},
		"inf":     {0, ErrFieldNotFinite},
		"decimal": {0, ErrFieldNotNumeric},
	}

	for field, tc := range cases {
		t.Run(field, func(t *testing.T) {
			got, err := rec.Number(field)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err), "got %v", err)
				var fe *FieldError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, field, fe.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSeriesWindow(t *testing.T) {
	s := Series{{"a", 1}, {"b", 2}, {"c", 3}}
	assert.Equal(t, Series{{"b", 2}, {"c", 3}}, s.Window(1, 2))
	assert.Empty(t, s.Window(2, 3))
	assert.Empty(t, s.Window(2, 1))
}
