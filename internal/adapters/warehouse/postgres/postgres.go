// Package postgres appends trend records to a Postgres table in one transaction
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trendsetl/internal/core/trend"
	"trendsetl/internal/modkit/repokit"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/logger"
	pstrings "trendsetl/internal/platform/strings"
	ptime "trendsetl/internal/platform/time"

	"cloud.google.com/go/civil"
)

// rows per INSERT statement; 6 params each keeps well under the protocol limit
const insertChunk = 500

var columnTypes = []string{"timestamptz", "text", "bigint", "text", "text", "timestamptz"}

// Warehouse is the Postgres destination; the pool belongs to the store
type Warehouse struct {
	db    repokit.TxRunner
	table string
	log   logger.Logger
}

// New binds a warehouse to table; timeout bounds each statement inside the append tx
func New(db repokit.TxRunner, table string, timeout time.Duration) (*Warehouse, error) {
	if db == nil {
		return nil, perr.InvalidArgf("postgres seam is nil")
	}
	if !pstrings.IsIdent(table) {
		return nil, perr.WithField(perr.InvalidArgf("postgres table %q is not a valid identifier", table), "table")
	}
	return &Warehouse{
		db:    repokit.WithBeginHooks(db, repokit.StatementTimeout(timeout)),
		table: table,
		log:   *logger.Named("postgres"),
	}, nil
}

// Target is the table name
func (w *Warehouse) Target() string { return w.table }

// LatestDate reads MAX(date)::date; a missing or empty table is an unknown watermark
func (w *Warehouse) LatestDate(ctx context.Context) (trend.Watermark, error) {
	var d *time.Time
	err := w.db.QueryRow(ctx, fmt.Sprintf("SELECT MAX(date AT TIME ZONE 'UTC')::date FROM %s", w.table)).Scan(&d)
	if err != nil {
		if perr.IsUndefinedTable(err) {
			return trend.Watermark{}, nil
		}
		return trend.Watermark{}, perr.FromPostgres(err, "postgres max date")
	}
	if d == nil {
		return trend.Watermark{}, nil
	}
	return trend.At(ptime.DateOf(*d)), nil
}

// LatestByMarket reads the max date per market
func (w *Warehouse) LatestByMarket(ctx context.Context) (map[string]civil.Date, error) {
	rows, err := w.db.Query(ctx, fmt.Sprintf(
		"SELECT market, MAX(date AT TIME ZONE 'UTC')::date FROM %s GROUP BY market", w.table))
	if err != nil {
		if perr.IsUndefinedTable(err) {
			return map[string]civil.Date{}, nil
		}
		return nil, perr.FromPostgres(err, "postgres max date by market")
	}
	defer rows.Close()

	out := map[string]civil.Date{}
	for rows.Next() {
		var (
			m string
			d time.Time
		)
		if err := rows.Scan(&m, &d); err != nil {
			return nil, perr.FromPostgres(err, "postgres scan max date by market")
		}
		out[m] = ptime.DateOf(d)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "postgres max date by market")
	}
	return out, nil
}

// Append runs DDL and every insert in one transaction so a run lands whole or not at all
func (w *Warehouse) Append(ctx context.Context, recs []trend.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	err := repokit.WithTx(ctx, w.db, func(q repokit.Queryer) error {
		for _, stmt := range DDL(w.table) {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		for start := 0; start < len(recs); start += insertChunk {
			end := min(start+insertChunk, len(recs))
			sql, args := insertStmt(w.table, recs[start:end])
			if _, err := q.Exec(ctx, sql, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, perr.FromPostgresf(err, "postgres append into %s", w.table)
	}
	w.log.Info().Str("table", w.table).Int("rows", len(recs)).Msg("postgres append committed")
	return len(recs), nil
}

// Close is a no-op; the store closes the pool
func (w *Warehouse) Close() error { return nil }

// DDL returns the statements that bring table up to the current column set
func DDL(table string) []string {
	defs := make([]string, len(trend.Columns))
	for i, c := range trend.Columns {
		defs[i] = c + " " + columnTypes[i]
	}
	out := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))}
	for _, d := range defs {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s", table, d))
	}
	return out
}

func insertStmt(table string, recs []trend.Record) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(trend.Columns, ", "))
	args := make([]any, 0, len(recs)*len(trend.Columns))
	for i, r := range recs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, v := range r.Values() {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, v)
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteByte(')')
	}
	return b.String(), args
}
