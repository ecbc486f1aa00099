package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"report-tables/storage"
	"report-tables/utils"
)

const retryBaseDelay = 2 * time.Second

func secondsOrDefault(sec int) time.Duration {
	if sec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(sec) * time.Second
}

// uniqueStem suffixes stem with a short hash of the source key.
func uniqueStem(stem, key string) string {
	sum := sha256.Sum256([]byte(key))
	return stem + "_" + hex.EncodeToString(sum[:4])
}

type batchOutcome struct {
	source string
	label  string
	series int
	found  bool
	err    error
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		opts        runOptions
		concurrency int
		rateLimitMs int
	)

	cmd := &cobra.Command{
		Use:   "batch <files...>",
		Short: "Run extract over several PDF or CSV files concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("concurrency") {
				concurrency = a.cfg.MaxConcurrency
			}
			opts.Quiet = true

			pool := utils.NewWorkerPool(concurrency, time.Duration(rateLimitMs)*time.Millisecond)
			seen := utils.NewKeySet()
			stems := utils.NewKeySet()

			var mu sync.Mutex
			outcomes := make([]*batchOutcome, len(args))

			for i, path := range args {
				key := path
				if abs, err := filepath.Abs(path); err == nil {
					key = abs
				}
				if !seen.Add(key) {
					a.logger.Warn("[batch] skipping duplicate %s", path)
					continue
				}

				jobOpts := opts
				jobOpts.Stem = storage.FileStem(path)
				if !stems.Add(jobOpts.Stem) {
					jobOpts.Stem = uniqueStem(jobOpts.Stem, key)
					stems.Add(jobOpts.Stem)
					a.logger.Warn("[batch] %s shares a file name with an earlier input, exporting as %s", path, jobOpts.Stem)
				}

				pool.Submit(func() {
					out := &batchOutcome{source: path}
					defer func() {
						mu.Lock()
						outcomes[i] = out
						mu.Unlock()
					}()

					data, err := os.ReadFile(path)
					if err != nil {
						out.err = err
						return
					}
					res, err := a.run(cmd.Context(), cmd.OutOrStdout(), path, a.extractorFor(path, ""), data, jobOpts)
					if err != nil {
						out.err = err
						return
					}
					out.found = res.Selection.Found
					out.series = len(res.Report.Series)
					out.label = res.Tables[res.Selection.Index].Label(res.Selection.Index)
				})
			}
			pool.Wait()

			w := cmd.OutOrStdout()
			failed := 0
			fmt.Fprintf(w, "Processed %d files\n", seen.Size())
			for _, o := range outcomes {
				switch {
				case o == nil:
					continue
				case o.err != nil:
					failed++
					fmt.Fprintf(w, "  FAIL  %s: %v\n", o.source, o.err)
				case !o.found:
					fmt.Fprintf(w, "  NONE  %s: no visualizable series\n", o.source)
				default:
					fmt.Fprintf(w, "  OK    %s: %s, %d series\n", o.source, o.label, o.series)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, seen.Size())
			}
			return nil
		},
	}

	addRunFlags(cmd, &opts)
	cmd.Flags().IntVar(&concurrency, "concurrency", 3, "Files processed in parallel (env MAX_CONCURRENCY)")
	cmd.Flags().IntVar(&rateLimitMs, "rate-limit-ms", 0, "Minimum delay between job starts")
	return cmd
}
