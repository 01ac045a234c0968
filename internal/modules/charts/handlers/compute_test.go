package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplainvest/wealthboard/internal/modules/charts"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"bars", "donut", "funnel", "gauge", "line", "pie"}, Kinds())
}

func TestRender_Gauge(t *testing.T) {
	out, err := Render(KindGauge, []byte(`{"value":50,"max":100}`))
	require.NoError(t, err)

	gauge, ok := out.(charts.Gauge)
	require.True(t, ok)
	assert.Equal(t, 50.0, gauge.Percentage)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("radar", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Render(KindBars, []byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidBody)

	_, err = Render(KindLine, []byte(`{"points":[{"label":"a","value":1}],"range":{"start":0,"end":3}}`))
	assert.ErrorIs(t, err, charts.ErrInvalidInput)

	_, err = Render(KindFunnel, []byte(`{"stages":[]}`))
	assert.True(t, charts.IsNoData(err))
}
