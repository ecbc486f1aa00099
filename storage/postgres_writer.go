package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"report-tables/models"
	"report-tables/utils"
)

const (
	insertBatchSize = 100
	longRecordCols  = 7
)

// PostgresWriter appends long records to PostgreSQL, one run per Write.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := utils.RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS long_records (
			id          BIGSERIAL    PRIMARY KEY,
			run_id      UUID         NOT NULL,
			source      TEXT         NOT NULL DEFAULT '',
			page        INTEGER      NOT NULL DEFAULT 0,
			time        DOUBLE PRECISION NOT NULL,
			metric      TEXT         NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			is_percent  BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_long_records_run    ON long_records(run_id);
		CREATE INDEX IF NOT EXISTS idx_long_records_metric ON long_records(metric);
	`)
	return err
}

// Write batch-inserts the long records of the export inside one transaction.
// Selections without a long table are skipped.
func (pw *PostgresWriter) Write(ctx context.Context, e Export) error {
	if e.Selection == nil || e.Selection.Long.Empty() {
		return nil
	}
	recs := e.Selection.Long.Records

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	for i := 0; i < len(recs); i += insertBatchSize {
		end := min(i+insertBatchSize, len(recs))
		query, args := buildInsert(e.RunID, e.Source, e.Selection.Page, recs[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}

	pw.logger.Info("[postgres] stored %d records for run %s", len(recs), e.RunID)
	return nil
}

func buildInsert(runID uuid.UUID, source string, page int, batch []models.LongRecord) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*longRecordCols)

	for idx, r := range batch {
		base := idx * longRecordCols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		valueArgs = append(valueArgs,
			runID.String(), source, page, r.Time, r.Metric, r.Value, r.IsPercent)
	}

	query := fmt.Sprintf(`
		INSERT INTO long_records (run_id, source, page, time, metric, value, is_percent)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// FetchRun reads back the records stored for one run, ordered as written.
func (pw *PostgresWriter) FetchRun(ctx context.Context, runID uuid.UUID) ([]models.LongRecord, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT time, metric, value, is_percent
		FROM long_records
		WHERE run_id = $1
		ORDER BY id
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch run: %w", err)
	}
	defer rows.Close()

	var recs []models.LongRecord
	for rows.Next() {
		var r models.LongRecord
		if err := rows.Scan(&r.Time, &r.Metric, &r.Value, &r.IsPercent); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
