package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"report-tables/extract"
	"report-tables/models"
	"report-tables/render"
	"report-tables/services"
	"report-tables/storage"
	"report-tables/utils"
)

var openPostgres = func(ctx context.Context, dsn string, logger *utils.Logger) (storage.ExportWriter, error) {
	return storage.NewPostgresWriter(ctx, dsn, logger)
}

// runOptions are the per-invocation choices shared by extract, fetch and batch.
type runOptions struct {
	Table    int // 1-based; 0 picks automatically
	PNG      bool
	Stacked  bool
	Postgres bool
	Quiet    bool
	Stem     string // output file stem; empty derives it from the source
}

type runResult struct {
	RunID     uuid.UUID
	Source    string
	Tables    []models.RawTable
	Selection *models.Selection
	Report    *models.InsightReport
}

// run pushes one source through extraction, selection, insights and export.
func (a *app) run(ctx context.Context, w io.Writer, source string, ex extract.Extractor, data []byte, opts runOptions) (*runResult, error) {
	tables, err := ex.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: extract: %w", source, err)
	}

	res := &runResult{RunID: uuid.New(), Source: source, Tables: tables}
	if !opts.Quiet {
		printCandidates(w, tables)
	}

	selector := services.NewSelector(a.vocab, a.logger)
	sel, err := selector.Pick(tables, opts.Table-1)
	if errors.Is(err, services.ErrNoTables) {
		return nil, fmt.Errorf("%s: %w (scanned documents need OCR first)", source, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	res.Selection = sel

	insights := services.NewInsightService(a.logger)
	res.Report = insights.Generate(source, sel.Page, sel.Long)
	if !opts.Quiet {
		fmt.Fprintf(w, "Using %s\n", tables[sel.Index].Label(sel.Index))
		insights.Print(w, res.Report)
	}

	if err := a.export(ctx, res, opts); err != nil {
		return res, err
	}

	if opts.PNG && sel.Found {
		if err := a.renderPNG(ctx, res, opts); err != nil {
			a.logger.Warn("[render] %v", err)
		}
	}
	return res, nil
}

// export writes the local CSV files first so a database failure never costs
// the local copy.
func (a *app) export(ctx context.Context, res *runResult, opts runOptions) error {
	if opts.Postgres && !a.cfg.PostgresEnabled() {
		return errors.New("postgres export requested but POSTGRES_HOST is not set")
	}

	csvWriter, err := storage.NewCSVWriter(a.cfg.CSVOutputDir)
	if err != nil {
		return err
	}

	e := storage.Export{
		RunID:          res.RunID,
		Source:         res.Source,
		Stem:           opts.Stem,
		Selection:      res.Selection,
		DisplayPercent: a.cfg.DisplayPercent,
	}
	if err := writeAndClose(ctx, csvWriter, e); err != nil {
		return err
	}
	clean, long := csvWriter.Paths(e)
	a.logger.Info("Cleaned table saved to %s", clean)
	if res.Selection.Found {
		a.logger.Info("Long table saved to %s (run %s)", long, res.RunID)
	}

	if !opts.Postgres {
		return nil
	}
	pgWriter, err := openPostgres(ctx, a.cfg.DSN(), a.logger)
	if err != nil {
		return fmt.Errorf("postgres export (csv files kept): %w", err)
	}
	return writeAndClose(ctx, pgWriter, e)
}

func writeAndClose(ctx context.Context, w storage.ExportWriter, e storage.Export) error {
	err := w.Write(ctx, e)
	return errors.Join(err, w.Close())
}

func (a *app) renderPNG(ctx context.Context, res *runResult, opts runOptions) error {
	title := strings.TrimSuffix(filepath.Base(res.Source), filepath.Ext(res.Source))
	html, err := render.ChartPage(res.Selection.Long, render.ChartOptions{
		Title:          fmt.Sprintf("%s (p.%d)", title, res.Selection.Page),
		DisplayPercent: a.cfg.DisplayPercent,
		Stacked:        opts.Stacked,
	})
	if err != nil {
		return err
	}

	stem := opts.Stem
	if stem == "" {
		stem = storage.FileStem(res.Source)
	}
	path := filepath.Join(a.cfg.CSVOutputDir, fmt.Sprintf("%s_p%d_t%d.png", stem, res.Selection.Page, res.Selection.Index+1))
	r := render.NewRasterizer(a.cfg.ChromeBin, a.cfg.MaxRetries, a.logger)
	return r.WritePNG(ctx, html, path)
}

func printCandidates(w io.Writer, tables []models.RawTable) {
	fmt.Fprintf(w, "%d candidate tables\n", len(tables))
	for i, t := range tables {
		fmt.Fprintf(w, "  %s\n", t.Label(i))
	}
}
