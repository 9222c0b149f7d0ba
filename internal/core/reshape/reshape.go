// Package reshape turns wide upstream frames into long, annotated records
package reshape

import (
	"time"

	"trendsetl/internal/core/trend"
)

// Melt emits one sample per (row, keyword) in row-major order.
// The partial flag is dropped; nil and zero scores are kept.
// Rows with fewer values than keywords yield nil scores for the missing columns.
func Melt(f trend.Frame) []trend.Sample {
	if f.Empty() {
		return nil
	}
	out := make([]trend.Sample, 0, len(f.Rows)*len(f.Keywords))
	for _, row := range f.Rows {
		for i, kw := range f.Keywords {
			var score *int
			if i < len(row.Values) && row.Values[i] != nil {
				v := *row.Values[i]
				score = &v
			}
			out = append(out, trend.Sample{Date: row.Time, Keyword: kw, Score: score})
		}
	}
	return out
}

// Annotate tags samples with their market and the run's extraction time
func Annotate(samples []trend.Sample, market, geo string, extractedAt time.Time) []trend.Record {
	if len(samples) == 0 {
		return nil
	}
	at := extractedAt.UTC()
	out := make([]trend.Record, len(samples))
	for i, s := range samples {
		out[i] = trend.Record{
			Date:        s.Date,
			Keyword:     s.Keyword,
			Score:       s.Score,
			Market:      market,
			GeoCode:     geo,
			ExtractedAt: at,
		}
	}
	return out
}
