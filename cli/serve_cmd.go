package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"report-tables/extract"
	"report-tables/server"
	"report-tables/services"
	"report-tables/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the table pipeline over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.ServerPort
			}
			gin.SetMode(gin.ReleaseMode)

			handler := server.NewTableHandler(
				a.extractorFor,
				extract.NewCache(a.cfg.CacheEntries),
				services.NewSelector(a.vocab, a.logger),
				services.NewInsightService(a.logger),
				a.logger,
			)
			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           server.NewRouter(handler, a.cfg.MaxUploadMB, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Starting report-tables server on port %s", port)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8080", "Port to listen on (env SERVER_PORT)")
	return cmd
}

func newShowRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show-run <run-id>",
		Short: "Print the long records stored in PostgreSQL for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			if !a.cfg.PostgresEnabled() {
				return errors.New("POSTGRES_HOST is not set")
			}

			pg, err := storage.NewPostgresWriter(cmd.Context(), a.cfg.DSN(), a.logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			recs, err := pg.FetchRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d records for run %s\n", len(recs), runID)
			for _, r := range recs {
				v := r.Value
				if a.cfg.DisplayPercent {
					v = r.DisplayValue()
				}
				fmt.Fprintf(w, "  %-8s %-30s %s\n", storage.FormatNumber(r.Time), r.Metric, storage.FormatNumber(v))
			}
			return nil
		},
	}
}
