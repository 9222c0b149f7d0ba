// Package store opens the optional backends the ETL talks to directly: postgres
// for the run ledger and clickhouse as an alternate warehouse
package store

import (
	"context"
	"errors"

	"trendsetl/internal/platform/logger"
)

// Store holds whichever backends were enabled; a nil field means disabled
type Store struct {
	Log logger.Logger // zero value logs nowhere

	PG TxRunner
	CH Clickhouse
}

// Row is a single scanned result
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; callers must Close it
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a write statement did
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier runs SQL against the pool or an open transaction
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a RowQuerier that can scope fn to one transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse covers DDL, reads, and batched appends
type Clickhouse interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	AppendBatch(ctx context.Context, table string, columns []string, rows [][]any) error
	Close() error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Option adjusts the Store before any backend is opened
type Option func(*Store) error

// WithLogger routes backend logs (connect retries, sql traces) to log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// Open applies opts then opens each enabled backend. If a later backend fails
// the ones already open are closed before returning.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	if cfg.PG.Enabled {
		db, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = db
	}
	if cfg.CH.Enabled {
		c, err := openCH(ctx, cfg, s)
		if err != nil {
			return nil, errors.Join(err, s.Close(ctx))
		}
		s.CH = c
	}
	return s, nil
}

// Close releases every open backend and joins their errors; safe on nil
func (s *Store) Close(_ context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
