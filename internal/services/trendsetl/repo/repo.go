// Package repo provides postgres access for the run ledger
package repo

import (
	"context"
	"time"

	"trendsetl/internal/modkit/repokit"
	pstrings "trendsetl/internal/platform/strings"
	ptime "trendsetl/internal/platform/time"
	"trendsetl/internal/services/trendsetl/domain"
)

// bodies and errors are clipped so one odd upstream message cannot bloat the table
const maxText = 2000

type (
	// PG is a Postgres binder for domain.LedgerRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.LedgerRepo
func NewPG() repokit.Binder[domain.LedgerRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.LedgerRepo { return &queries{q: q} }

// Ensure creates trend_runs when missing
func (r *queries) Ensure(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trend_runs (
			run_id          uuid PRIMARY KEY,
			started_at      timestamptz NOT NULL,
			finished_at     timestamptz,
			status          text NOT NULL,
			status_code     int,
			body            text,
			trigger_markets text[] NOT NULL DEFAULT '{}',
			dry_run         boolean NOT NULL DEFAULT false,
			scope           text NOT NULL DEFAULT 'global',
			target          text,
			batches_ok      int NOT NULL DEFAULT 0,
			batches_empty   int NOT NULL DEFAULT 0,
			batches_failed  int NOT NULL DEFAULT 0,
			rows_extracted  int NOT NULL DEFAULT 0,
			rows_complete   int NOT NULL DEFAULT 0,
			rows_new        int NOT NULL DEFAULT 0,
			rows_loaded     int NOT NULL DEFAULT 0,
			watermark_date  date,
			error           text
		)
	`)
	return err
}

// StartRun inserts the running row (idempotent on run_id)
func (r *queries) StartRun(ctx context.Context, rep domain.Report) error {
	markets := rep.Trigger.Markets
	if markets == nil {
		markets = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO trend_runs (run_id, started_at, status, trigger_markets, dry_run, scope, target)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING
	`, rep.RunID, rep.StartedAt.UTC(), domain.StatusRunning, markets, rep.Trigger.DryRun, string(rep.Scope), rep.Target)
	return err
}

// FinishRun stores the outcome and counters
func (r *queries) FinishRun(ctx context.Context, rep domain.Report, res domain.Result) error {
	var wm any
	if rep.Watermark.Known {
		wm = rep.Watermark.Date.String()
	}
	_, err := r.q.Exec(ctx, `
		UPDATE trend_runs SET
			finished_at = $2,
			status = $3,
			status_code = $4,
			body = $5,
			batches_ok = $6,
			batches_empty = $7,
			batches_failed = $8,
			rows_extracted = $9,
			rows_complete = $10,
			rows_new = $11,
			rows_loaded = $12,
			watermark_date = $13::date,
			error = $14
		WHERE run_id = $1
	`,
		rep.RunID, rep.FinishedAt.UTC(), rep.Status, res.StatusCode, pstrings.Truncate(res.Body, maxText),
		rep.BatchesOK, rep.BatchesEmpty, rep.BatchesFailed,
		rep.RowsExtracted, rep.RowsComplete, rep.RowsNew, rep.RowsLoaded,
		wm, pstrings.SQLNull(pstrings.Truncate(rep.Error, maxText)),
	)
	return err
}

// Recent lists the newest runs first
func (r *queries) Recent(ctx context.Context, limit int) ([]domain.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.Query(ctx, `
		SELECT run_id::text, started_at, finished_at, status, status_code, body,
		       rows_extracted, rows_loaded, watermark_date
		FROM trend_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RunRow{}
	for rows.Next() {
		var (
			row domain.RunRow
			wm  *time.Time
		)
		if err := rows.Scan(
			&row.RunID, &row.StartedAt, &row.FinishedAt, &row.Status, &row.StatusCode, &row.Body,
			&row.RowsExtracted, &row.RowsLoaded, &wm,
		); err != nil {
			return nil, err
		}
		if wm != nil {
			d := ptime.DateOf(*wm)
			row.Watermark = &d
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
