package services

import (
	"io"
	"reflect"
	"testing"

	"report-tables/models"
	"report-tables/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard, utils.LevelDebug) }

func TestCleanerPromotesHeader(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := models.RawTable{Page: 3, Rows: [][]string{
		{" 연도 ", "혼인건수", ""},
		{"2019", " 1,200 ", "x"},
		{"", "", ""},
		{"2020", "1,100", ""},
	}}

	got := c.Clean(raw)

	if !got.HeaderPromoted {
		t.Fatal("expected header promotion for a 2/3 filled first row")
	}
	wantCols := []string{"연도", "혼인건수", "col_2"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Errorf("columns: got %v, want %v", got.Columns, wantCols)
	}
	wantRows := [][]string{{"2019", "1,200", "x"}, {"2020", "1,100", ""}}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Errorf("rows: got %v, want %v", got.Rows, wantRows)
	}
	if got.Page != 3 {
		t.Errorf("page: got %d, want 3", got.Page)
	}
}

func TestCleanerKeepsPositionalNames(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := models.RawTable{Rows: [][]string{
		{"", "", "title"},
		{"a", "1", "2"},
	}}

	got := c.Clean(raw)

	if got.HeaderPromoted {
		t.Fatal("a 1/3 filled first row must not become the header")
	}
	wantCols := []string{"col_0", "col_1", "col_2"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Errorf("columns: got %v, want %v", got.Columns, wantCols)
	}
	if len(got.Rows) != 2 {
		t.Errorf("rows: got %d, want 2", len(got.Rows))
	}
}

func TestCleanerPadsRaggedRowsAndDedupesNames(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := models.RawTable{Rows: [][]string{
		{"구분", "구분", "2020"},
		{"a"},
		{"b", "c", "d", "e"},
	}}

	got := c.Clean(raw)

	wantCols := []string{"구분", "구분_1", "2020", "col_3"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Errorf("columns: got %v, want %v", got.Columns, wantCols)
	}
	for i, r := range got.Rows {
		if len(r) != len(got.Columns) {
			t.Errorf("row %d has %d cells, want %d", i, len(r), len(got.Columns))
		}
	}
}

func TestCleanerIsIdempotent(t *testing.T) {
	c := NewCleaner(newTestLogger())
	tables := []models.RawTable{
		{Rows: [][]string{{"year", "", "b"}, {"2019", "1", "2"}, {"", "", ""}, {"2020", "3", "4"}}},
		{Rows: [][]string{{"", "", "x"}, {"1", "2", "3"}}},
		{Rows: [][]string{{"a", "a", "a_1"}, {"1", "2", "3"}}},
	}

	for i, raw := range tables {
		once := c.Clean(raw)
		twice := c.Clean(once.Raw())
		if !reflect.DeepEqual(once.Columns, twice.Columns) || !reflect.DeepEqual(once.Rows, twice.Rows) {
			t.Errorf("table %d: clean(clean(T)) differs\n once: %v %v\ntwice: %v %v",
				i, once.Columns, once.Rows, twice.Columns, twice.Rows)
		}
	}
}

func TestCleanerDoesNotMutateInput(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := models.RawTable{Rows: [][]string{{" a ", "b"}, {" 1 ", "2"}}}
	before := raw.Clone()

	c.Clean(raw)

	if !reflect.DeepEqual(raw, before) {
		t.Errorf("input mutated: %v", raw.Rows)
	}
}

func TestCleanerEmptyTable(t *testing.T) {
	c := NewCleaner(newTestLogger())
	got := c.Clean(models.RawTable{})
	if len(got.Columns) != 0 || len(got.Rows) != 0 {
		t.Errorf("expected empty clean table, got %v %v", got.Columns, got.Rows)
	}
}
