package domain

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
)

// RunnerPort is the module's public port: one ETL pass per call
type RunnerPort interface {
	Run(ctx context.Context, tr Trigger) (Result, Report)

	// TryRun is Run guarded against overlap; a busy runner returns a Conflict error
	TryRun(ctx context.Context, tr Trigger) (Result, Report, error)
}

// HistoryPort reads the run ledger
type HistoryPort interface {
	Recent(ctx context.Context, limit int) ([]RunRow, error)
}

// CatalogPort exposes the market catalog
type CatalogPort interface {
	All() []Market
	Select(codes []string) ([]Market, error)
}

// Source is the upstream interest-over-time query
type Source interface {
	InterestOverTime(ctx context.Context, q Query) (Frame, error)
}

// Warehouse is the destination table
type Warehouse interface {
	Target() string
	LatestDate(ctx context.Context) (Watermark, error)
	LatestByMarket(ctx context.Context) (map[string]civil.Date, error)
	Append(ctx context.Context, recs []Record) (int, error)
}

// Pacer spaces upstream requests
type Pacer interface {
	Wait(ctx context.Context) error
}

// LedgerRepo records each run for audit; the pipeline never reads it back
type LedgerRepo interface {
	// Ensure creates the ledger table when missing
	Ensure(ctx context.Context) error

	// StartRun inserts the running row
	StartRun(ctx context.Context, rep Report) error

	// FinishRun stores the outcome and counters
	FinishRun(ctx context.Context, rep Report, res Result) error

	// Recent lists the newest runs first
	Recent(ctx context.Context, limit int) ([]RunRow, error)
}

// RunRow is one ledger entry as read back for the API
type RunRow struct {
	RunID         string      `json:"run_id"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
	Status        string      `json:"status"`
	StatusCode    *int        `json:"status_code,omitempty"`
	Body          *string     `json:"body,omitempty"`
	RowsExtracted int         `json:"rows_extracted"`
	RowsLoaded    int         `json:"rows_loaded"`
	Watermark     *civil.Date `json:"watermark,omitempty"`
}
