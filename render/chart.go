// Package render draws a long table as an HTML page with a line chart and a
// bar chart built on go-echarts, and rasterizes that page to PNG.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"report-tables/models"
)

// ErrNothingToPlot is returned for an empty long table.
var ErrNothingToPlot = errors.New("render: no records to plot")

// Chart container ids, also used by the rasterizer to wait for drawing.
const (
	LineChartID = "trend_line"
	BarChartID  = "trend_bar"
)

// missingPoint is what echarts treats as a gap in a series.
const missingPoint = "-"

// ChartOptions controls the generated page.
type ChartOptions struct {
	Title          string
	DisplayPercent bool
	Stacked        bool
	Width          int
	Height         int
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Width <= 0 {
		o.Width = 960
	}
	if o.Height <= 0 {
		o.Height = 360
	}
	if o.Title == "" {
		o.Title = "Time series"
	}
	return o
}

func (o ChartOptions) init(id string) opts.Initialization {
	return opts.Initialization{
		PageTitle: o.Title,
		Width:     fmt.Sprintf("%dpx", o.Width),
		Height:    fmt.Sprintf("%dpx", o.Height),
		ChartID:   id,
	}
}

// series is one metric laid out on the shared time axis.
type series struct {
	name   string
	points []any
}

// ChartPage renders res as an HTML document holding a line chart with
// markers and a grouped (or stacked) bar chart over the same time axis.
func ChartPage(res *models.LongTableResult, o ChartOptions) (string, error) {
	if res.Empty() {
		return "", ErrNothingToPlot
	}
	o = o.withDefaults()

	times := distinctTimes(res.Records)
	axis := make([]string, len(times))
	for i, t := range times {
		axis[i] = formatTick(t)
	}
	all := buildSeries(res, times, o.DisplayPercent)
	subtitle := fmt.Sprintf("%s layout, %d series, %d records", res.Orientation, len(all), len(res.Records))

	page := components.NewPage()
	page.PageTitle = o.Title
	page.AddCharts(
		lineChart(axis, all, o, subtitle),
		barChart(axis, all, o),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return "", fmt.Errorf("render: chart page: %w", err)
	}
	return buf.String(), nil
}

func lineChart(axis []string, all []series, o ChartOptions, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(LineChartID)),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: subtitle}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)
	line.SetXAxis(axis)
	for _, s := range all {
		data := make([]opts.LineData, len(s.points))
		for i, p := range s.points {
			data[i] = opts.LineData{Value: p}
		}
		line.AddSeries(s.name, data)
	}
	return line
}

func barChart(axis []string, all []series, o ChartOptions) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(BarChartID)),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)
	bar.SetXAxis(axis)
	for _, s := range all {
		data := make([]opts.BarData, len(s.points))
		for i, p := range s.points {
			data[i] = opts.BarData{Value: p}
		}
		bar.AddSeries(s.name, data)
	}
	if o.Stacked {
		bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))
	}
	return bar
}

// buildSeries aligns every metric on times. Percent metrics get a " (%)"
// suffix and a 0-100 scale when displayPercent is set.
func buildSeries(res *models.LongTableResult, times []float64, displayPercent bool) []series {
	metrics := res.Metrics
	if len(metrics) == 0 {
		metrics = metricsOf(res.Records)
	}
	slot := make(map[float64]int, len(times))
	for i, t := range times {
		slot[t] = i
	}

	index := make(map[string]int, len(metrics))
	out := make([]series, len(metrics))
	for i, m := range metrics {
		name := m
		if displayPercent && res.PercentMetrics[m] {
			name += " (%)"
		}
		points := make([]any, len(times))
		for j := range points {
			points[j] = missingPoint
		}
		out[i] = series{name: name, points: points}
		index[m] = i
	}

	for _, r := range res.Records {
		i, ok := index[r.Metric]
		if !ok {
			continue
		}
		v := r.Value
		if displayPercent {
			v = r.DisplayValue()
		}
		out[i].points[slot[r.Time]] = v
	}
	return out
}

func distinctTimes(recs []models.LongRecord) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range recs {
		if !seen[r.Time] {
			seen[r.Time] = true
			out = append(out, r.Time)
		}
	}
	sort.Float64s(out)
	return out
}

func metricsOf(recs []models.LongRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range recs {
		if !seen[r.Metric] {
			seen[r.Metric] = true
			out = append(out, r.Metric)
		}
	}
	return out
}

func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
