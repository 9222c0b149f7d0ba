// Package bigquery appends trend records to a BigQuery table with load jobs
// and reads the table's date watermark
package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"trendsetl/internal/core/trend"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/logger"
	pstrings "trendsetl/internal/platform/strings"
	ptime "trendsetl/internal/platform/time"

	bq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Config names the destination and carries the service account document
type Config struct {
	Project     string
	Dataset     string
	Table       string
	Credentials []byte
}

// backend is the slice of the BigQuery client the warehouse uses
type backend interface {
	query(ctx context.Context, sql string) ([][]bq.Value, error)
	load(ctx context.Context, dataset, table string, src io.Reader) error
	close() error
}

// Warehouse is the BigQuery destination
type Warehouse struct {
	be  backend
	cfg Config
	log logger.Logger
}

// Open creates a client authenticated with the service account document
func Open(ctx context.Context, cfg Config) (*Warehouse, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(cfg.Credentials)) == 0 {
		return nil, perr.InvalidArgf("bigquery credentials are required")
	}
	c, err := bq.NewClient(ctx, cfg.Project, option.WithCredentialsJSON(cfg.Credentials))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "bigquery client")
	}
	return newWarehouse(clientBackend{c: c}, cfg), nil
}

func newWarehouse(be backend, cfg Config) *Warehouse {
	return &Warehouse{be: be, cfg: cfg, log: *logger.Named("bigquery")}
}

func validate(cfg Config) error {
	if cfg.Project == "" {
		return perr.WithField(perr.InvalidArgf("bigquery project is required"), "project")
	}
	if !pstrings.IsIdent(cfg.Dataset) {
		return perr.WithField(perr.InvalidArgf("bigquery dataset %q is not a valid identifier", cfg.Dataset), "dataset")
	}
	if !pstrings.IsIdent(cfg.Table) {
		return perr.WithField(perr.InvalidArgf("bigquery table %q is not a valid identifier", cfg.Table), "table")
	}
	return nil
}

// Target is the fully qualified table id, project.dataset.table
func (w *Warehouse) Target() string {
	return w.cfg.Project + "." + w.cfg.Dataset + "." + w.cfg.Table
}

func (w *Warehouse) quoted() string { return "`" + w.Target() + "`" }

// LatestDate reads MAX(DATE(date)); a missing or empty table is an unknown watermark
func (w *Warehouse) LatestDate(ctx context.Context) (trend.Watermark, error) {
	rows, err := w.be.query(ctx, fmt.Sprintf("SELECT MAX(DATE(date)) AS max_date FROM %s", w.quoted()))
	if err != nil {
		if isNotFound(err) {
			w.log.Info().Str("table", w.Target()).Msg("destination table not found; watermark unknown")
			return trend.Watermark{}, nil
		}
		return trend.Watermark{}, perr.Wrap(err, perr.ErrorCodeDB, "bigquery max date")
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return trend.Watermark{}, nil
	}
	d, ok := asDate(rows[0][0])
	if !ok {
		return trend.Watermark{}, nil
	}
	return trend.At(d), nil
}

// asDate accepts the civil.Date the client decodes DATE into, and the string
// form a NULL-typed or legacy SQL result may carry. NULL is not a date.
func asDate(v any) (civil.Date, bool) {
	switch x := v.(type) {
	case civil.Date:
		return x, x.IsValid()
	case string:
		d, err := ptime.ParseDate(x)
		return d, err == nil
	default:
		return civil.Date{}, false
	}
}

// LatestByMarket reads MAX(DATE(date)) per market
func (w *Warehouse) LatestByMarket(ctx context.Context) (map[string]civil.Date, error) {
	rows, err := w.be.query(ctx, fmt.Sprintf(
		"SELECT market, MAX(DATE(date)) AS max_date FROM %s GROUP BY market", w.quoted()))
	if err != nil {
		if isNotFound(err) {
			return map[string]civil.Date{}, nil
		}
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "bigquery max date by market")
	}
	out := make(map[string]civil.Date, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		m, _ := r[0].(string)
		d, ok := asDate(r[1])
		if m == "" || !ok {
			continue
		}
		out[m] = d
	}
	return out, nil
}

// Append runs one load job: WRITE_APPEND, autodetected schema, new columns allowed.
// It returns after the job completes.
func (w *Warehouse) Append(ctx context.Context, recs []trend.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	var buf bytes.Buffer
	if err := EncodeNDJSON(&buf, recs); err != nil {
		return 0, err
	}
	if err := w.be.load(ctx, w.cfg.Dataset, w.cfg.Table, &buf); err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeDB, "bigquery load into %s", w.Target())
	}
	w.log.Info().Str("table", w.Target()).Int("rows", len(recs)).Msg("bigquery load job done")
	return len(recs), nil
}

// Close releases the client
func (w *Warehouse) Close() error { return w.be.close() }

// EncodeNDJSON writes one JSON object per record, the load job source format
func EncodeNDJSON(dst io.Writer, recs []trend.Record) error {
	enc := json.NewEncoder(dst)
	for i := range recs {
		r := recs[i]
		r.Date = r.Date.UTC()
		r.ExtractedAt = r.ExtractedAt.UTC()
		if err := enc.Encode(r); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnknown, "encode record")
		}
	}
	return nil
}

// isNotFound matches both the REST error and the job error shapes for a missing table
func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return true
	}
	var jerr *bq.Error
	return errors.As(err, &jerr) && jerr.Reason == "notFound"
}

// clientBackend runs queries and load jobs on a real client
type clientBackend struct{ c *bq.Client }

func (b clientBackend) query(ctx context.Context, sql string) ([][]bq.Value, error) {
	it, err := b.c.Query(sql).Read(ctx)
	if err != nil {
		return nil, err
	}
	var out [][]bq.Value
	for {
		var row []bq.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}

func (b clientBackend) load(ctx context.Context, dataset, table string, src io.Reader) error {
	rs := bq.NewReaderSource(src)
	rs.SourceFormat = bq.JSON
	rs.AutoDetect = true

	l := b.c.Dataset(dataset).Table(table).LoaderFrom(rs)
	l.WriteDisposition = bq.WriteAppend
	l.SchemaUpdateOptions = []string{"ALLOW_FIELD_ADDITION"}

	job, err := l.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

func (b clientBackend) close() error { return b.c.Close() }
