// Package time contains time and calendar date helpers shared by the pipeline
package time

import (
	"time"

	"cloud.google.com/go/civil"
)

// FromUnix converts epoch seconds into a UTC instant
func FromUnix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// DateOf returns the UTC calendar date of t
func DateOf(t time.Time) civil.Date { return civil.DateOf(t.UTC()) }

// ParseDate accepts "2006-01-02" and RFC3339 timestamps, returning the UTC date
func ParseDate(s string) (civil.Date, error) {
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return civil.Date{}, err
	}
	return DateOf(t), nil
}
