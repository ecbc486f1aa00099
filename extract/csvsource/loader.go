// Package csvsource loads published statistics CSVs from a URL or a local
// file and hands them to the pipeline as a single RawTable.
package csvsource

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/unicode/norm"

	"report-tables/models"
	"report-tables/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Options struct {
	// HeaderRows > 1 flattens a multi-row header into "upper_lower" names.
	HeaderRows int
	Timeout    time.Duration
	Retry      utils.RetryConfig
	Client     *http.Client
}

// Loader reads CSV sources.
type Loader struct {
	opts   Options
	logger *utils.Logger
}

func NewLoader(opts Options, logger *utils.Logger) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}
	return &Loader{opts: opts, logger: logger}
}

func (l *Loader) Name() string { return "csv" }

// Load reads src, an http(s) URL or a file path, and parses it.
func (l *Loader) Load(ctx context.Context, src string) ([]models.RawTable, error) {
	data, err := l.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	return l.Extract(ctx, data)
}

// Read returns the raw bytes of src.
func (l *Loader) Read(ctx context.Context, src string) ([]byte, error) {
	if !isURL(src) {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("csvsource: read %s: %w", src, err)
		}
		return data, nil
	}

	var data []byte
	err := l.opts.Retry.Do(ctx, "fetch "+src, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return err
		}
		resp, err := l.opts.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("csvsource: %w", err)
	}
	l.logger.Debug("[csv] fetched %d bytes from %s", len(data), src)
	return data, nil
}

// Extract parses CSV bytes into one RawTable on page 0.
func (l *Loader) Extract(_ context.Context, data []byte) ([]models.RawTable, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvsource: parse: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rows = FlattenHeaders(rows, l.opts.HeaderRows)
	return []models.RawTable{{Page: 0, Rows: rows}}, nil
}

// Decode strips a UTF-8 BOM, falls back to CP949 for bytes that are not
// valid UTF-8, and returns NFC-normalized text.
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("csvsource: decode cp949: %w", err)
		}
		data = decoded
	}
	return string(norm.NFC.Bytes(data)), nil
}

// FlattenHeaders joins the first n rows into one header row. Blank cells in
// upper header levels take the value to their left, matching how merged
// header cells are exported.
func FlattenHeaders(rows [][]string, n int) [][]string {
	if n <= 1 || len(rows) < n {
		return rows
	}

	width := 0
	for _, row := range rows[:n] {
		width = max(width, len(row))
	}

	header := make([]string, width)
	carry := make([]string, n)
	for j := 0; j < width; j++ {
		var parts []string
		for i := 0; i < n; i++ {
			v := ""
			if j < len(rows[i]) {
				v = strings.TrimSpace(rows[i][j])
			}
			if i < n-1 {
				if v == "" {
					v = carry[i]
				} else {
					carry[i] = v
				}
			}
			if v != "" {
				parts = append(parts, v)
			}
		}
		header[j] = strings.Trim(strings.Join(parts, "_"), "_")
	}

	out := make([][]string, 0, len(rows)-n+1)
	out = append(out, header)
	return append(out, rows[n:]...)
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
