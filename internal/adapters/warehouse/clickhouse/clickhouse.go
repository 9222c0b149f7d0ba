// Package clickhouse appends trend records to a MergeTree table through the store seam
package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trendsetl/internal/core/trend"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/store"
	pstrings "trendsetl/internal/platform/strings"
	ptime "trendsetl/internal/platform/time"

	"cloud.google.com/go/civil"
	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// server error code for UNKNOWN_TABLE
const codeUnknownTable = 60

// column types in trend.Columns order
var columnTypes = []string{
	"DateTime64(3, 'UTC')",
	"String",
	"Nullable(Int64)",
	"LowCardinality(String)",
	"LowCardinality(String)",
	"DateTime64(3, 'UTC')",
}

// Warehouse is the ClickHouse destination; the connection belongs to the store
type Warehouse struct {
	ch    store.Clickhouse
	table string
	log   logger.Logger

	ensured bool
}

// New binds a warehouse to table on an open clickhouse seam
func New(c store.Clickhouse, table string) (*Warehouse, error) {
	if c == nil {
		return nil, perr.InvalidArgf("clickhouse seam is nil")
	}
	if !pstrings.IsIdent(table) {
		return nil, perr.WithField(perr.InvalidArgf("clickhouse table %q is not a valid identifier", table), "table")
	}
	return &Warehouse{ch: c, table: table, log: *logger.Named("clickhouse")}, nil
}

// Target is the table name
func (w *Warehouse) Target() string { return w.table }

// LatestDate reads maxOrNull(toDate(date)); a missing or empty table is an unknown watermark
func (w *Warehouse) LatestDate(ctx context.Context) (trend.Watermark, error) {
	rows, err := w.ch.Query(ctx, fmt.Sprintf("SELECT maxOrNull(toDate(date)) AS max_date FROM %s", w.table))
	if err != nil {
		if isUnknownTable(err) {
			return trend.Watermark{}, nil
		}
		return trend.Watermark{}, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse max date")
	}
	defer rows.Close()

	if !rows.Next() {
		return trend.Watermark{}, perr.WrapIf(rows.Err(), perr.ErrorCodeDB, "clickhouse max date")
	}
	var d *time.Time
	if err := rows.Scan(&d); err != nil {
		return trend.Watermark{}, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse scan max date")
	}
	if d == nil {
		return trend.Watermark{}, nil
	}
	return trend.At(ptime.DateOf(*d)), nil
}

// LatestByMarket reads the max date per market
func (w *Warehouse) LatestByMarket(ctx context.Context) (map[string]civil.Date, error) {
	rows, err := w.ch.Query(ctx, fmt.Sprintf(
		"SELECT market, max(toDate(date)) AS max_date FROM %s GROUP BY market", w.table))
	if err != nil {
		if isUnknownTable(err) {
			return map[string]civil.Date{}, nil
		}
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse max date by market")
	}
	defer rows.Close()

	out := map[string]civil.Date{}
	for rows.Next() {
		var (
			m string
			d time.Time
		)
		if err := rows.Scan(&m, &d); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse scan max date by market")
		}
		out[m] = ptime.DateOf(d)
	}
	return out, perr.WrapIf(rows.Err(), perr.ErrorCodeDB, "clickhouse max date by market")
}

// Append creates or extends the table on first use, then inserts all records in one batch
func (w *Warehouse) Append(ctx context.Context, recs []trend.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	if err := w.ensure(ctx); err != nil {
		return 0, err
	}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		var score *int64
		if r.Score != nil {
			v := int64(*r.Score)
			score = &v
		}
		rows[i] = []any{r.Date.UTC(), r.Keyword, score, r.Market, r.GeoCode, r.ExtractedAt.UTC()}
	}
	if err := w.ch.AppendBatch(ctx, w.table, trend.Columns, rows); err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeDB, "clickhouse insert into %s", w.table)
	}
	w.log.Info().Str("table", w.table).Int("rows", len(recs)).Msg("clickhouse batch sent")
	return len(recs), nil
}

// ensure is idempotent DDL: create if missing, then add any column an older table lacks
func (w *Warehouse) ensure(ctx context.Context) error {
	if w.ensured {
		return nil
	}
	for _, stmt := range DDL(w.table) {
		if err := w.ch.Exec(ctx, stmt); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDB, "clickhouse ddl on %s", w.table)
		}
	}
	w.ensured = true
	return nil
}

// DDL returns the statements that bring table up to the current column set
func DDL(table string) []string {
	cols := ""
	for i, c := range trend.Columns {
		if i > 0 {
			cols += ", "
		}
		cols += c + " " + columnTypes[i]
	}
	out := []string{fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree ORDER BY (market, keyword, date)", table, cols)}
	for i, c := range trend.Columns {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, c, columnTypes[i]))
	}
	return out
}

// Close is a no-op; the store closes the connection
func (w *Warehouse) Close() error { return nil }

func isUnknownTable(err error) bool {
	var ex *ch.Exception
	return errors.As(err, &ex) && ex.Code == codeUnknownTable
}
