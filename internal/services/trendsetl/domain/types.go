// Package domain holds the run's value types, outcomes and ports
package domain

import (
	"fmt"
	"net/http"
	"time"

	"trendsetl/internal/core/markets"
	"trendsetl/internal/core/trend"
)

// Re-exported shapes shared with the core packages and the adapters
type (
	Market     = markets.Market
	Query      = trend.Query
	Frame      = trend.Frame
	FrameRow   = trend.FrameRow
	Sample     = trend.Sample
	Record     = trend.Record
	Watermark  = trend.Watermark
	Watermarks = trend.Watermarks
	Scope      = trend.Scope
)

// Result bodies; monitoring matches on these strings
const (
	BodyNoData         = "No data extracted"
	BodyNoCompleteWeek = "No complete week data available"
	BodyNoNewData      = "No new data - all dates already exist in BigQuery"
	bodyCompleted      = "ETL completed: %d rows loaded"
	bodyDryRun         = "Dry run: %d rows would be loaded"
	bodyError          = "Error: %s"
)

// Trigger is the invocation payload; the zero value is a full run over every market
type Trigger struct {
	Markets []string `json:"markets,omitempty" validate:"omitempty,max=64,dive,market_code"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// Result is what the invoker sees
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// OK reports a 200 result
func (r Result) OK() bool { return r.StatusCode == http.StatusOK }

// NoData is the exit when no batch produced rows
func NoData() Result { return Result{http.StatusOK, BodyNoData} }

// NoCompleteWeek is the exit when every row is inside the completeness lag
func NoCompleteWeek() Result { return Result{http.StatusOK, BodyNoCompleteWeek} }

// NoNewData is the exit when the watermark removed every row
func NoNewData() Result { return Result{http.StatusOK, BodyNoNewData} }

// Completed is the success exit
func Completed(n int) Result { return Result{http.StatusOK, fmt.Sprintf(bodyCompleted, n)} }

// DryRun reports what a load would have written
func DryRun(n int) Result { return Result{http.StatusOK, fmt.Sprintf(bodyDryRun, n)} }

// Failed is the terminal error exit
func Failed(err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{http.StatusInternalServerError, fmt.Sprintf(bodyError, msg)}
}

// FetchKind tags a batch outcome
type FetchKind uint8

const (
	// FetchOK returned at least one data point
	FetchOK FetchKind = iota
	// FetchEmpty returned a valid response with no data
	FetchEmpty
	// FetchFailed returned an error
	FetchFailed
)

func (k FetchKind) String() string {
	switch k {
	case FetchOK:
		return "ok"
	case FetchEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// FetchResult is one batch's outcome; Frame is set only for FetchOK, Err only for FetchFailed
type FetchResult struct {
	Market   string
	Batch    int
	Keywords []string
	Kind     FetchKind
	Frame    Frame
	Err      error
	Elapsed  time.Duration
}

// Run statuses stored in the ledger
const (
	StatusRunning        = "running"
	StatusNoData         = "no_data"
	StatusNoCompleteWeek = "no_complete_week"
	StatusNoNewData      = "no_new_data"
	StatusLoaded         = "loaded"
	StatusDryRun         = "dry_run"
	StatusFailed         = "failed"
)

// Report is the run's statistics, for logs, metrics and the ledger
type Report struct {
	RunID      string
	Trigger    Trigger
	Scope      Scope
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string

	Markets       int
	BatchesOK     int
	BatchesEmpty  int
	BatchesFailed int

	RowsExtracted int
	RowsComplete  int
	RowsNew       int
	RowsLoaded    int

	Cutoff    time.Time
	Watermark Watermark
	Error     string
}

// Add folds one batch outcome into the counters
func (r *Report) Add(fr FetchResult) {
	switch fr.Kind {
	case FetchOK:
		r.BatchesOK++
	case FetchEmpty:
		r.BatchesEmpty++
	default:
		r.BatchesFailed++
	}
}

// Batches is the number of batches attempted
func (r Report) Batches() int { return r.BatchesOK + r.BatchesEmpty + r.BatchesFailed }

// Elapsed is the run's wall time, zero until finished
func (r Report) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
