package store

import (
	"time"

	"trendsetl/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
	StmtTimeout time.Duration // zero keeps the server default

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled     bool
	URL         string
	ClientTag   string // reported to the server as the process role
	DialTimeout time.Duration
}

// ConfigFromEnv builds a Config from SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_*
// a backend is enabled when its DBURL is set
func ConfigFromEnv(root config.Conf, appName, role string) Config {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        pgCfg.Has("DBURL"),
			URL:            pgCfg.MayString("DBURL", ""),
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			StmtTimeout:    pgCfg.MayDuration("STATEMENT_TIMEOUT", 0),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:     chCfg.Has("DBURL"),
			URL:         chCfg.MayString("DBURL", ""),
			ClientTag:   role,
			DialTimeout: chCfg.MayDuration("DIAL_TIMEOUT", 10*time.Second),
		},
	}
}
