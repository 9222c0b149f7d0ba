// Package trend holds the value types that flow through the pipeline:
// wide frames from upstream, long samples, annotated records, and watermarks
package trend

import (
	"time"

	"cloud.google.com/go/civil"
)

// DefaultTimeframe is the rolling window queried each run
const DefaultTimeframe = "now 7-d"

// Query is one interest-over-time request: up to five keywords in one geography.
// Category 0 is unrestricted; an empty Property means web search.
type Query struct {
	Keywords  []string
	Geo       string
	Timeframe string
	Category  int
	Property  string
}

// Frame is one batch response in wide form: one row per time point,
// one value column per keyword
type Frame struct {
	Keywords []string
	Rows     []FrameRow
}

// FrameRow is a single time point; Values align with Frame.Keywords
type FrameRow struct {
	Time    time.Time
	Values  []*int
	Partial bool
}

// Empty reports whether the frame carries no data points
func (f Frame) Empty() bool { return len(f.Rows) == 0 || len(f.Keywords) == 0 }

// Sample is one (time, keyword) interest value; Score is nil when upstream had no value
type Sample struct {
	Date    time.Time
	Keyword string
	Score   *int
}

// Record is the unit persisted downstream
type Record struct {
	Date        time.Time `json:"date"`
	Keyword     string    `json:"keyword"`
	Score       *int      `json:"interest_score"`
	Market      string    `json:"market"`
	GeoCode     string    `json:"geo_code"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Day returns the UTC calendar date of the record
func (r Record) Day() civil.Date { return civil.DateOf(r.Date.UTC()) }

// Columns is the destination column order shared by every warehouse driver
var Columns = []string{"date", "keyword", "interest_score", "market", "geo_code", "extracted_at"}

// Values returns the record in Columns order
func (r Record) Values() []any {
	var score any
	if r.Score != nil {
		score = int64(*r.Score)
	}
	return []any{r.Date.UTC(), r.Keyword, score, r.Market, r.GeoCode, r.ExtractedAt.UTC()}
}

// Watermark is the latest date already stored; Known is false when the
// destination is empty, missing or could not be read
type Watermark struct {
	Known bool
	Date  civil.Date
}

// At returns a known watermark at d
func At(d civil.Date) Watermark { return Watermark{Known: true, Date: d} }

// String renders the watermark for logs
func (w Watermark) String() string {
	if !w.Known {
		return "unknown"
	}
	return w.Date.String()
}

// Watermarks is the destination state for either scope: Global for the whole table,
// ByMarket when scoped per market (markets missing from the map have no watermark)
type Watermarks struct {
	Global   Watermark
	ByMarket map[string]civil.Date
}

// Scope selects how the watermark is read and applied
type Scope string

const (
	// ScopeGlobal uses one table-wide maximum date
	ScopeGlobal Scope = "global"
	// ScopeMarket uses one maximum date per market
	ScopeMarket Scope = "market"
)
