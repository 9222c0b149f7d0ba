package store

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"trendsetl/internal/platform/logger"
	chx "trendsetl/internal/platform/store/ch"
	"trendsetl/internal/platform/store/pg"
)

// sleep is swapped in tests so retries do not wait on the wall clock
var sleep = time.Sleep

const (
	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// waitReady pings until it succeeds, ctx ends, or attempts run out, doubling
// the pause between tries up to backoffCeiling
func waitReady(ctx context.Context, log logger.Logger, name string, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	attempts = max(attempts, 1)
	var err error
	pause := backoffStart
	for i := range attempts {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i == attempts-1 {
			break
		}
		log.Warn().Err(err).Str("backend", name).Int("attempt", i+1).Dur("backoff", pause).Msg("backend not ready")
		sleep(pause)
		pause = min(pause*2, backoffCeiling)
	}
	return fmt.Errorf("%s not ready after %d attempts: %w", name, attempts, err)
}

func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}
	p, err := pg.Open(ctx, pg.Config{
		URL:              cfg.PG.URL,
		AppName:          cfg.AppName,
		MaxConns:         cfg.PG.MaxConns,
		SlowMs:           cfg.PG.SlowQueryMs,
		StatementTimeout: cfg.PG.StmtTimeout,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	// the pool is pinged directly so retries leave no trace lines
	attempts := cmp.Or(cfg.PG.ConnectRetries, 20)
	timeout := cmp.Or(cfg.PG.PingTimeout, 3*time.Second)
	if err := waitReady(ctx, s.Log, "postgres", attempts, timeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		URL:         cfg.CH.URL,
		AppName:     cfg.AppName,
		Role:        cfg.CH.ClientTag,
		DialTimeout: cfg.CH.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return chAdapter{c}, nil
}

// chAdapter narrows *ch.CH to the Clickhouse seam
type chAdapter struct{ *chx.CH }

func (a chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.CH.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{r}, nil
}

func (a chAdapter) AppendBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	return a.Insert(ctx, table, columns, rows)
}

// chRows drops the Close error, matching pgx rows
type chRows struct{ chx.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
