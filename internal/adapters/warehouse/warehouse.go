// Package warehouse selects and opens the destination table driver
package warehouse

import (
	"context"
	"time"

	"trendsetl/internal/adapters/warehouse/bigquery"
	"trendsetl/internal/adapters/warehouse/clickhouse"
	"trendsetl/internal/adapters/warehouse/postgres"
	"trendsetl/internal/core/trend"
	"trendsetl/internal/platform/config"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/store"

	"cloud.google.com/go/civil"
)

// Driver names accepted by CORE_WAREHOUSE_DRIVER
const (
	DriverBigQuery   = "bigquery"
	DriverClickhouse = "clickhouse"
	DriverPostgres   = "postgres"
)

// Warehouse is the destination contract every driver satisfies.
// LatestDate returns an unknown watermark, not an error, when the table does not exist yet.
type Warehouse interface {
	Target() string
	LatestDate(ctx context.Context) (trend.Watermark, error)
	LatestByMarket(ctx context.Context) (map[string]civil.Date, error)
	Append(ctx context.Context, recs []trend.Record) (int, error)
	Close() error
}

var (
	_ Warehouse = (*bigquery.Warehouse)(nil)
	_ Warehouse = (*clickhouse.Warehouse)(nil)
	_ Warehouse = (*postgres.Warehouse)(nil)
)

// Config selects a driver and names the destination table
type Config struct {
	Driver  string
	Project string
	Dataset string
	Table   string

	// Credentials is the service account document, bigquery only
	Credentials []byte

	// StatementTimeout bounds each postgres statement; zero leaves the server default
	StatementTimeout time.Duration
}

// Defaults for the destination, matching the scheduled job's original table
const (
	DefaultProject = "keyword-planner-etl"
	DefaultDataset = "keyword_data"
	DefaultTable   = "trends_data"
)

// serviceAccount is the subset of the credential document checked at startup
type serviceAccount struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
}

// ConfigFromEnv reads the destination settings. With the bigquery driver a missing
// or malformed GCP_SERVICE_ACCOUNT_JSON panics, before any work starts.
func ConfigFromEnv(root config.Conf) Config {
	cfg := Config{
		Driver:           root.MayEnum("CORE_WAREHOUSE_DRIVER", DriverBigQuery, DriverBigQuery, DriverClickhouse, DriverPostgres),
		Project:          root.MayString("GCP_PROJECT_ID", DefaultProject),
		Dataset:          root.MayString("BIGQUERY_DATASET", DefaultDataset),
		Table:            root.Prefix("CORE_TRENDS_").MayString("TABLE", DefaultTable),
		StatementTimeout: root.Prefix("SERVICE_PGSQL_").MayDuration("STATEMENT_TIMEOUT", 60*time.Second),
	}
	if cfg.Driver == DriverBigQuery {
		var sa serviceAccount
		root.MustJSON("GCP_SERVICE_ACCOUNT_JSON", &sa)
		if sa.Type == "" {
			panic("GCP_SERVICE_ACCOUNT_JSON has no credential type")
		}
		cfg.Credentials = []byte(root.MustString("GCP_SERVICE_ACCOUNT_JSON"))
	}
	return cfg
}

// Backends are the already opened store seams the sql drivers write through
type Backends struct {
	PG store.TxRunner
	CH store.Clickhouse
}

// Open returns the configured driver. The sql drivers borrow their connection
// from the store and do not own it.
func Open(ctx context.Context, cfg Config, b Backends) (Warehouse, error) {
	switch cfg.Driver {
	case "", DriverBigQuery:
		w, err := bigquery.Open(ctx, bigquery.Config{
			Project:     cfg.Project,
			Dataset:     cfg.Dataset,
			Table:       cfg.Table,
			Credentials: cfg.Credentials,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	case DriverClickhouse:
		if b.CH == nil {
			return nil, perr.InvalidArgf("warehouse driver %s needs SERVICE_CLICKHOUSE_DBURL", cfg.Driver)
		}
		w, err := clickhouse.New(b.CH, cfg.Table)
		if err != nil {
			return nil, err
		}
		return w, nil
	case DriverPostgres:
		if b.PG == nil {
			return nil, perr.InvalidArgf("warehouse driver %s needs SERVICE_PGSQL_DBURL", cfg.Driver)
		}
		w, err := postgres.New(b.PG, cfg.Table, cfg.StatementTimeout)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, perr.InvalidArgf("unknown warehouse driver %q", cfg.Driver)
	}
}
