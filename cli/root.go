// Package cli is the command-line front end: extract tables from PDFs or
// CSV sources, pick the chartable one, export it, or serve the same
// pipeline over HTTP.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"report-tables/config"
	"report-tables/models"
	"report-tables/utils"
)

// app carries the resolved configuration shared by every command.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	vocab  models.Vocabulary
}

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		logLevel       string
		outDir         string
		displayPercent bool
		vocabulary     string
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "report-tables",
		Short:         "Find and reshape time-series tables in statistical reports",
		Long:          "Extracts candidate tables from PDF reports or CSV sources, picks the first one with a recognizable time axis, and exports it in long form.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load()

			// Apply precedence: flag > env > default
			if cmd.Flags().Changed("log-level") {
				a.cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("out") {
				a.cfg.CSVOutputDir = outDir
			}
			if cmd.Flags().Changed("display-percent") {
				a.cfg.DisplayPercent = displayPercent
			}
			if cmd.Flags().Changed("vocabulary") {
				a.cfg.VocabularyFile = vocabulary
			}

			if w := cmd.ErrOrStderr(); w == os.Stderr {
				a.logger = utils.NewLogger()
			} else {
				a.logger = utils.NewLoggerTo(w, utils.LevelInfo)
			}
			a.logger.SetLevel(utils.ParseLevel(a.cfg.LogLevel))

			vocab, err := config.LoadVocabulary(a.cfg.VocabularyFile)
			if err != nil {
				return err
			}
			a.vocab = vocab
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "./output", "Directory for exported CSV and PNG files")
	rootCmd.PersistentFlags().BoolVar(&displayPercent, "display-percent", false, "Show percent metrics on a 0-100 scale in exports and charts")
	rootCmd.PersistentFlags().StringVar(&vocabulary, "vocabulary", "", "YAML file with time-axis patterns and year bounds")

	rootCmd.AddCommand(newExtractCmd(a))
	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newBatchCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newShowRunCmd(a))

	return rootCmd
}
