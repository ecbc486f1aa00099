package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-tables/models"
)

func rates() *models.LongTableResult {
	return &models.LongTableResult{
		Orientation: models.OrientationHorizontal,
		TimeColumn:  "year",
		Metrics:     []string{"혼인율", "이혼율"},
		Records: []models.LongRecord{
			{Time: 2020, Metric: "이혼율", Value: 0.021, IsPercent: true},
			{Time: 2020, Metric: "혼인율", Value: 0.042, IsPercent: true},
			{Time: 2021, Metric: "이혼율", Value: 0.020, IsPercent: true},
			{Time: 2021, Metric: "혼인율", Value: 0.038, IsPercent: true},
		},
		PercentMetrics: map[string]bool{"혼인율": true, "이혼율": true},
	}
}

func TestChartPageStructure(t *testing.T) {
	html, err := ChartPage(rates(), ChartOptions{Title: "Marriage and divorce"})
	require.NoError(t, err)

	assert.Contains(t, html, "Marriage and divorce")
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, LineChartID)
	assert.Contains(t, html, BarChartID)
	assert.Contains(t, html, "혼인율")
	assert.Contains(t, html, "2021")
	assert.NotContains(t, html, "(%)")
}

func TestChartPageStacked(t *testing.T) {
	html, err := ChartPage(rates(), ChartOptions{Stacked: true})
	require.NoError(t, err)
	assert.Contains(t, html, `"stack":"total"`)
}

func TestChartPageDisplayPercent(t *testing.T) {
	html, err := ChartPage(rates(), ChartOptions{DisplayPercent: true})
	require.NoError(t, err)
	assert.Contains(t, html, "혼인율 (%)")
}

func TestChartPageEmpty(t *testing.T) {
	_, err := ChartPage(&models.LongTableResult{}, ChartOptions{})
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestBuildSeriesAlignsOnTimeAxis(t *testing.T) {
	res := rates()
	res.Records = res.Records[1:] // 2020 이혼율 missing

	times := distinctTimes(res.Records)
	require.Equal(t, []float64{2020, 2021}, times)

	got := buildSeries(res, times, false)
	require.Len(t, got, 2)
	assert.Equal(t, "혼인율", got[0].name)
	assert.Equal(t, []any{0.042, 0.038}, got[0].points)
	assert.Equal(t, "이혼율", got[1].name)
	assert.Equal(t, []any{missingPoint, 0.020}, got[1].points)
}

func TestBuildSeriesDisplayPercent(t *testing.T) {
	res := rates()
	res.PercentMetrics = map[string]bool{"혼인율": true}

	got := buildSeries(res, distinctTimes(res.Records), true)
	assert.Equal(t, "혼인율 (%)", got[0].name)
	assert.InDelta(t, 4.2, got[0].points[0].(float64), 1e-9)
	assert.Equal(t, "이혼율", got[1].name)
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "2020", formatTick(2020))
	assert.Equal(t, "2020.5", formatTick(2020.5))
}

func TestFindChromeBinaryPrefersExplicitThenEnv(t *testing.T) {
	t.Setenv("CHROME_BIN", "/env/chrome")
	assert.Equal(t, "/opt/chrome", findChromeBinary("/opt/chrome"))
	assert.Equal(t, "/env/chrome", findChromeBinary(""))
}
