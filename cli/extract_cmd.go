package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"report-tables/extract"
	"report-tables/extract/csvsource"
	"report-tables/extract/pdftables"
	"report-tables/utils"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		opts     runOptions
		password string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract tables from a PDF report and export the chartable one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("password") {
				password = a.cfg.PDFPassword
			}
			if !cmd.Flags().Changed("validate") {
				validate = a.cfg.PDFValidate
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			ex := pdftables.New(pdftables.Options{Password: password, Validate: validate}, a.logger)
			_, err = a.run(cmd.Context(), cmd.OutOrStdout(), args[0], ex, data, opts)
			return err
		},
	}

	addRunFlags(cmd, &opts)
	cmd.Flags().StringVar(&password, "password", "", "Password for encrypted PDFs (env PDF_PASSWORD)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate the PDF structure before reading (env PDF_VALIDATE)")
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	var (
		opts       runOptions
		headerRows int
	)

	cmd := &cobra.Command{
		Use:   "fetch <url|path>",
		Short: "Load a statistics CSV from a URL or file and export it in long form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := a.csvLoader(headerRows)
			data, err := loader.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = a.run(cmd.Context(), cmd.OutOrStdout(), args[0], loader, data, opts)
			return err
		},
	}

	addRunFlags(cmd, &opts)
	cmd.Flags().IntVar(&headerRows, "header-rows", 1, "Number of header rows to flatten into column names")
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVar(&opts.Table, "table", 0, "Force candidate table N (1-based) instead of picking automatically")
	cmd.Flags().BoolVar(&opts.PNG, "png", false, "Render the chart to PNG with headless Chrome")
	cmd.Flags().BoolVar(&opts.Stacked, "stacked", false, "Stack bars instead of grouping them")
	cmd.Flags().BoolVar(&opts.Postgres, "postgres", false, "Also store long records in PostgreSQL (env POSTGRES_*)")
}

func (a *app) csvLoader(headerRows int) *csvsource.Loader {
	return csvsource.NewLoader(csvsource.Options{
		HeaderRows: headerRows,
		Timeout:    secondsOrDefault(a.cfg.FetchTimeoutSec),
		Retry:      utils.RetryConfig{MaxAttempts: a.cfg.MaxRetries, BaseDelay: retryBaseDelay},
	}, a.logger)
}

// extractorFor picks the extractor by file extension.
func (a *app) extractorFor(name, password string) extract.Extractor {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return a.csvLoader(1)
	}
	if password == "" {
		password = a.cfg.PDFPassword
	}
	return pdftables.New(pdftables.Options{Password: password, Validate: a.cfg.PDFValidate}, a.logger)
}
