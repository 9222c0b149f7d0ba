package store

import (
	"context"
	"errors"
	"time"

	"trendsetl/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the statement surface shared by *pgxpool.Pool and pgx.Tx
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// traced runs statements against q and reports each one to tracer
type traced struct {
	q      pgxQuerier
	tracer pg.QueryTracer
	slow   time.Duration // zero never flags
}

// pgconn.CommandTag already satisfies CommandTag
func (t traced) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	done := t.start(ctx, sql, args)
	ct, err := t.q.Exec(ctx, sql, args...)
	done(err)
	return ct, err
}

func (t traced) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	done := t.start(ctx, sql, args)
	rs, err := t.q.Query(ctx, sql, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

// QueryRow reports once Scan runs, since that is where pgx surfaces the error
func (t traced) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgRow{Row: t.q.QueryRow(ctx, sql, args...), done: t.start(ctx, sql, args)}
}

// start returns the func that closes out one statement's trace event
func (t traced) start(ctx context.Context, sql string, args []any) func(error) {
	if t.tracer == nil {
		return func(error) {}
	}
	began := time.Now()
	return func(err error) {
		elapsed := time.Since(began)
		t.tracer.OnQuery(ctx, pg.QueryEvent{
			SQL:     sql,
			Args:    args,
			Elapsed: elapsed,
			Err:     err,
			Slow:    t.slow > 0 && elapsed >= t.slow,
		})
	}
}

// pgAdapter is the TxRunner over an open pool
type pgAdapter struct {
	traced
	p *pg.PG
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{
		traced: traced{q: p.Pool, tracer: p.Tracer, slow: time.Duration(p.SlowMs) * time.Millisecond},
		p:      p,
	}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.p == nil || a.p.Pool == nil {
		return errors.New("pg: nil adapter")
	}
	return a.p.Pool.Ping(ctx)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

// Tx commits when fn returns nil and rolls back otherwise
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return pgx.BeginFunc(ctx, a.p.Pool, func(tx pgx.Tx) error {
		return fn(traced{q: tx, tracer: a.tracer, slow: a.slow})
	})
}

type pgRow struct {
	pgx.Row
	done func(error)
}

func (r pgRow) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	r.done(err)
	return err
}

type pgRows struct{ pgx.Rows }

func (r pgRows) Columns() []string {
	fds := r.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}
