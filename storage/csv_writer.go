package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"report-tables/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCleanCSV writes the column names followed by every row. The output
// starts with a UTF-8 BOM so spreadsheet tools detect the encoding.
func WriteCleanCSV(w io.Writer, t *models.CleanTable) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("csv: write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("csv: write rows: %w", err)
	}
	return nil
}

// WriteLongCSV writes one line per record. With displayPercent a
// display_value column is added holding percent values on a 0-100 scale.
func WriteLongCSV(w io.Writer, res *models.LongTableResult, displayPercent bool) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("csv: write bom: %w", err)
	}

	timeCol := res.TimeColumn
	if timeCol == "" {
		timeCol = "time"
	}
	header := []string{timeCol, "metric", "value"}
	if displayPercent {
		header = append(header, "display_value")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range res.Records {
		row := []string{FormatNumber(r.Time), r.Metric, FormatNumber(r.Value)}
		if displayPercent {
			row = append(row, FormatNumber(r.DisplayValue()))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatNumber prints whole numbers without a fraction and everything else
// in the shortest exact form.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSVWriter writes cleaned and long tables as files into a directory.
// It is safe for concurrent use.
type CSVWriter struct {
	mu  sync.Mutex
	dir string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// FileStem turns a source path or URL into a file-name stem.
func FileStem(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	stem = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '?', '&', '=':
			return '_'
		}
		return r
	}, stem)
	if stem == "" || stem == "." {
		stem = "table"
	}
	return stem
}

// Paths returns the cleaned and long file paths for an export.
func (c *CSVWriter) Paths(e Export) (clean, long string) {
	stem := e.Stem
	if stem == "" {
		stem = FileStem(e.Source)
	}
	base := fmt.Sprintf("%s_p%d_t%d", stem, e.Selection.Page, e.Selection.Index+1)
	return filepath.Join(c.dir, base+"_cleaned.csv"), filepath.Join(c.dir, base+"_long.csv")
}

// Write creates the cleaned file and, when the selection has a long table,
// the long file.
func (c *CSVWriter) Write(_ context.Context, e Export) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cleanPath, longPath := c.Paths(e)
	if err := writeFile(cleanPath, func(w io.Writer) error {
		return WriteCleanCSV(w, e.Selection.Clean)
	}); err != nil {
		return err
	}

	if e.Selection.Long.Empty() {
		return nil
	}
	return writeFile(longPath, func(w io.Writer) error {
		return WriteLongCSV(w, e.Selection.Long, e.DisplayPercent)
	})
}

// Close is a no-op; every Write closes its own files.
func (c *CSVWriter) Close() error { return nil }

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
