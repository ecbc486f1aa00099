package services

import (
	"errors"
	"fmt"
	"sort"

	"report-tables/models"
	"report-tables/utils"
)

var (
	// ErrNoTables means the extraction collaborator produced nothing at all.
	ErrNoTables = errors.New("no tables to select from")
	// ErrNoOrientation means neither a time column nor year headers were found.
	ErrNoOrientation = errors.New("table has no recognizable time axis")
	// ErrNoSeries means every candidate series was filtered out.
	ErrNoSeries = errors.New("no visualizable series")
	// ErrTableIndex means a forced candidate index does not exist.
	ErrTableIndex = errors.New("table index out of range")
)

// HorizontalTimeColumn names the time axis of long tables melted from
// year-valued headers.
const HorizontalTimeColumn = "year"

// minSeriesPoints is the number of distinct time points a metric needs.
const minSeriesPoints = 2

// Transformer reshapes classified tables into long form.
type Transformer struct {
	logger *utils.Logger
}

// NewTransformer creates a Transformer with the given logger.
func NewTransformer(logger *utils.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// ToLong melts t according to layout. It returns ErrNoOrientation for
// OrientationNone and ErrNoSeries when nothing survives filtering.
func (tr *Transformer) ToLong(t *models.CleanTable, layout models.Layout) (*models.LongTableResult, error) {
	switch layout.Orientation {
	case models.OrientationVertical:
		return tr.vertical(t, layout)
	case models.OrientationHorizontal:
		return tr.horizontal(t, layout)
	default:
		return nil, ErrNoOrientation
	}
}

func (tr *Transformer) vertical(t *models.CleanTable, layout models.Layout) (*models.LongTableResult, error) {
	timeIdx := t.ColumnIndex(layout.TimeColumn)
	if timeIdx < 0 {
		return nil, fmt.Errorf("time column %q not in table: %w", layout.TimeColumn, ErrNoOrientation)
	}

	times := make([]float64, len(t.Rows))
	timeOK := make([]bool, len(t.Rows))
	for i, row := range t.Rows {
		times[i], timeOK[i] = ParseTimeValue(row[timeIdx])
	}

	b := newSeriesBuilder()
	for idx, metric := range t.Columns {
		if idx == timeIdx {
			continue
		}
		b.declare(metric)
		for i, row := range t.Rows {
			nv := NormalizeCell(row[idx])
			if nv.IsPercent {
				b.markPercent(metric)
			}
			if !nv.Valid || !timeOK[i] {
				continue
			}
			b.add(times[i], metric, nv.Value)
		}
	}

	return tr.finish(b, models.OrientationVertical, layout.TimeColumn)
}

func (tr *Transformer) horizontal(t *models.CleanTable, layout models.Layout) (*models.LongTableResult, error) {
	labelIdx := -1
	if !layout.SyntheticLabels {
		labelIdx = t.ColumnIndex(layout.LabelColumn)
	}

	type timeCol struct {
		idx  int
		year float64
	}
	cols := make([]timeCol, 0, len(layout.TimeColumns))
	for _, name := range layout.TimeColumns {
		idx := t.ColumnIndex(name)
		year, ok := ParseTimeValue(name)
		if idx < 0 || !ok {
			continue
		}
		cols = append(cols, timeCol{idx: idx, year: year})
	}
	if len(cols) < 2 {
		return nil, ErrNoOrientation
	}

	labels := make([]string, len(t.Rows))
	if labelIdx >= 0 {
		for i, row := range t.Rows {
			labels[i] = row[labelIdx]
		}
	}
	labels = uniqueNames(labels, "row_%d")

	b := newSeriesBuilder()
	for i, row := range t.Rows {
		metric := labels[i]
		b.declare(metric)
		for _, tc := range cols {
			nv := NormalizeCell(row[tc.idx])
			if nv.IsPercent {
				b.markPercent(metric)
			}
			if nv.Valid {
				b.add(tc.year, metric, nv.Value)
			}
		}
	}

	return tr.finish(b, models.OrientationHorizontal, HorizontalTimeColumn)
}

// finish drops degenerate series, sorts and packages the result.
func (tr *Transformer) finish(b *seriesBuilder, o models.Orientation, timeColumn string) (*models.LongTableResult, error) {
	res := &models.LongTableResult{
		Orientation:    o,
		TimeColumn:     timeColumn,
		PercentMetrics: make(map[string]bool),
	}

	distinctTimes := make(map[float64]struct{})
	for _, metric := range b.order {
		recs := b.records[metric]
		if !varies(recs) {
			tr.logger.Debug("[transformer] dropping series %q (%d points)", metric, len(recs))
			continue
		}
		pct := b.percent[metric]
		for _, r := range recs {
			r.IsPercent = pct
			res.Records = append(res.Records, r)
			distinctTimes[r.Time] = struct{}{}
		}
		res.Metrics = append(res.Metrics, metric)
		if pct {
			res.PercentMetrics[metric] = true
		}
	}

	if len(res.Metrics) == 0 || len(distinctTimes) < minSeriesPoints {
		return nil, ErrNoSeries
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		a, c := res.Records[i], res.Records[j]
		if a.Time != c.Time {
			return a.Time < c.Time
		}
		return a.Metric < c.Metric
	})
	return res, nil
}

// varies reports whether a series has at least two distinct time points and
// a non-constant value.
func varies(recs []models.LongRecord) bool {
	if len(recs) < minSeriesPoints {
		return false
	}
	times := make(map[float64]struct{}, len(recs))
	lo, hi := recs[0].Value, recs[0].Value
	for _, r := range recs {
		times[r.Time] = struct{}{}
		if r.Value < lo {
			lo = r.Value
		}
		if r.Value > hi {
			hi = r.Value
		}
	}
	return len(times) >= minSeriesPoints && hi != lo
}

// seriesBuilder collects records per metric in first-seen order.
type seriesBuilder struct {
	order   []string
	records map[string][]models.LongRecord
	percent map[string]bool
}

func newSeriesBuilder() *seriesBuilder {
	return &seriesBuilder{
		records: make(map[string][]models.LongRecord),
		percent: make(map[string]bool),
	}
}

func (b *seriesBuilder) declare(metric string) {
	if _, ok := b.records[metric]; ok {
		return
	}
	b.order = append(b.order, metric)
	b.records[metric] = nil
}

func (b *seriesBuilder) markPercent(metric string) { b.percent[metric] = true }

func (b *seriesBuilder) add(t float64, metric string, v float64) {
	b.records[metric] = append(b.records[metric], models.LongRecord{Time: t, Metric: metric, Value: v})
}
