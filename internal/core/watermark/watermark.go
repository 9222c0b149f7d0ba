// Package watermark holds the two record filters applied before loading:
// the completeness cutoff and the destination watermark
package watermark

import (
	"time"

	"trendsetl/internal/core/trend"
)

// DefaultLag is how far behind now data is considered settled
const DefaultLag = 72 * time.Hour

// Cutoff returns the instant before which records are complete
func Cutoff(now time.Time, lag time.Duration) time.Time { return now.Add(-lag) }

// ApplyCutoff keeps records strictly before cutoff
func ApplyCutoff(recs []trend.Record, cutoff time.Time) []trend.Record {
	return keep(recs, func(r trend.Record) bool { return r.Date.Before(cutoff) })
}

// ApplyWatermark keeps records whose date is strictly after w; an unknown w keeps all
func ApplyWatermark(recs []trend.Record, w trend.Watermark) []trend.Record {
	if !w.Known {
		return recs
	}
	return keep(recs, func(r trend.Record) bool { return r.Day().After(w.Date) })
}

// Apply filters by scope: the global watermark, or each record's market watermark.
// In market scope, markets without an entry are kept whole.
func Apply(recs []trend.Record, ws trend.Watermarks, scope trend.Scope) []trend.Record {
	if scope != trend.ScopeMarket {
		return ApplyWatermark(recs, ws.Global)
	}
	if len(ws.ByMarket) == 0 {
		return recs
	}
	return keep(recs, func(r trend.Record) bool {
		d, ok := ws.ByMarket[r.Market]
		return !ok || r.Day().After(d)
	})
}

func keep(recs []trend.Record, pred func(trend.Record) bool) []trend.Record {
	out := make([]trend.Record, 0, len(recs))
	for _, r := range recs {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
