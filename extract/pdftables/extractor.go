// Package pdftables finds tables in text-based PDFs by clustering positioned
// glyphs into lines, cells and column-aligned blocks.
package pdftables

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"report-tables/models"
	"report-tables/utils"
)

type Options struct {
	Password string
	Validate bool
	Layout   LayoutOptions
}

// Extractor reads tables from PDF bytes.
type Extractor struct {
	opts   Options
	logger *utils.Logger
}

func New(opts Options, logger *utils.Logger) *Extractor {
	if opts.Layout == (LayoutOptions{}) {
		opts.Layout = DefaultLayoutOptions()
	}
	return &Extractor{opts: opts, logger: logger}
}

func (e *Extractor) Name() string { return "pdf" }

// Extract returns candidate tables in page order, then top-to-bottom within
// a page. Pages that fail to parse are skipped with a warning. A document
// without text yields no tables and no error.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]models.RawTable, error) {
	data, err := e.prepare(data)
	if err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var tables []models.RawTable
	sawText := false
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		lines, err := pageLines(p)
		if err != nil {
			e.logger.Warn("[pdf] page %d: %v", i, err)
			continue
		}
		if len(lines) > 0 {
			sawText = true
		}
		for _, grid := range DetectTables(lines, e.opts.Layout) {
			tables = append(tables, models.RawTable{Page: i, Rows: grid})
		}
	}
	if !sawText {
		e.logger.Warn("[pdf] no page has extractable text, the document is probably scanned")
	}

	e.logger.Debug("[pdf] %d pages, %d candidate tables", r.NumPage(), len(tables))
	return tables, nil
}

// prepare decrypts and optionally validates the document with pdfcpu before
// handing it to the text reader.
func (e *Extractor) prepare(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	if e.opts.Password != "" {
		conf.UserPW = e.opts.Password
		conf.OwnerPW = e.opts.Password
	}

	if e.opts.Validate {
		if err := api.Validate(bytes.NewReader(data), conf); err != nil {
			return nil, fmt.Errorf("validate pdf: %w", err)
		}
	}

	if e.opts.Password == "" {
		return data, nil
	}
	// A configured password is also applied to documents that have none.
	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if pctx.Encrypt == nil {
		return data, nil
	}
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("decrypt pdf: %w", err)
	}
	return out.Bytes(), nil
}

// pageLines converts the reader's rows into Lines. The reader panics on some
// malformed content streams, so that is turned into an error.
func pageLines(p pdf.Page) (lines []Line, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read text: %v", rec)
		}
	}()

	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		ln := Line{Y: float64(row.Position)}
		for _, t := range row.Content {
			ln.Glyphs = append(ln.Glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
		}
		if len(ln.Glyphs) > 0 {
			lines = append(lines, ln)
		}
	}
	return lines, nil
}
