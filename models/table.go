package models

import (
	"fmt"
	"math"
)

// RawTable is a rectangular grid of text cells as handed over by an
// extraction collaborator. Page is 1-based for PDFs and 0 for CSV sources.
type RawTable struct {
	Page int
	Rows [][]string
}

// Shape returns the row and column counts of the grid.
func (t RawTable) Shape() (rows, cols int) {
	rows = len(t.Rows)
	for _, r := range t.Rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return rows, cols
}

// Label names a candidate the way users pick it: 1-based table number.
func (t RawTable) Label(index int) string {
	rows, cols := t.Shape()
	return fmt.Sprintf("p.%d - table#%d (shape=%dx%d)", t.Page, index+1, rows, cols)
}

// Clone returns a deep copy so cached tables cannot be mutated by callers.
func (t RawTable) Clone() RawTable {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return RawTable{Page: t.Page, Rows: rows}
}

// CleanTable is a RawTable after header promotion and blank-row removal.
// Column names are unique and non-empty; every row has len(Columns) cells.
type CleanTable struct {
	Page           int
	Columns        []string
	Rows           [][]string
	HeaderPromoted bool
}

// ColumnIndex returns the position of name, or -1.
func (t *CleanTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the values in the named column.
func (t *CleanTable) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Raw turns the table back into a grid with the column names as first row.
func (t *CleanTable) Raw() RawTable {
	rows := make([][]string, 0, len(t.Rows)+1)
	rows = append(rows, append([]string(nil), t.Columns...))
	for _, r := range t.Rows {
		rows = append(rows, append([]string(nil), r...))
	}
	return RawTable{Page: t.Page, Rows: rows}
}

// NumericValue is a normalized cell. Value is only meaningful when Valid.
// Percent values are stored on a 0-1 scale.
type NumericValue struct {
	Value     float64
	Valid     bool
	IsPercent bool
}

// Missing is the "not a number" result.
var Missing = NumericValue{}

// Orientation classifies how a table lays out its time axis.
type Orientation string

const (
	OrientationNone       Orientation = "none"
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
)

// Layout is the outcome of orientation detection.
//
// Vertical layouts set TimeColumn. Horizontal layouts set TimeColumns and
// LabelColumn; SyntheticLabels is true when no label column existed and rows
// are labelled row_0, row_1, ...
type Layout struct {
	Orientation     Orientation
	TimeColumn      string
	TimeColumns     []string
	LabelColumn     string
	SyntheticLabels bool
}

// LongRecord is one (time, metric, value) observation.
type LongRecord struct {
	Time      float64 `json:"time"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	IsPercent bool    `json:"is_percent"`
}

// DisplayValue scales percent values back to 0-100 for presentation.
func (r LongRecord) DisplayValue() float64 {
	if r.IsPercent {
		return r.Value * 100
	}
	return r.Value
}

// LongTableResult is a tidy table plus the facts about how it was derived.
// Records are sorted by (Time, Metric).
type LongTableResult struct {
	Records        []LongRecord    `json:"records"`
	Orientation    Orientation     `json:"orientation"`
	TimeColumn     string          `json:"time_column"`
	Metrics        []string        `json:"metrics"`
	PercentMetrics map[string]bool `json:"percent_metrics"`
}

// Empty reports whether there is nothing to chart.
func (r *LongTableResult) Empty() bool {
	return r == nil || len(r.Records) == 0
}

// TimeRange returns the smallest and largest time values present.
func (r *LongTableResult) TimeRange() (lo, hi float64, ok bool) {
	if r.Empty() {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, rec := range r.Records {
		lo = math.Min(lo, rec.Time)
		hi = math.Max(hi, rec.Time)
	}
	return lo, hi, true
}

// Selection is what the table selector hands to the presentation layer.
// When Found is false, Clean holds the first candidate and Long is empty:
// a valid "nothing visualizable" outcome, not a fault.
type Selection struct {
	Index int
	Page  int
	Found bool
	Clean *CleanTable
	Long  *LongTableResult
}
