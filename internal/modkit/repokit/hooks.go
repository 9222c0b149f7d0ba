package repokit

import (
	"context"
	"strconv"
	"time"
)

// BeginHook runs first inside every transaction, on the tx itself
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks returns db with hooks run at the start of each Tx, in order.
// Statements outside a Tx pass straight through.
func WithBeginHooks(db TxRunner, hooks ...BeginHook) TxRunner {
	return hooked{TxRunner: db, hooks: hooks}
}

type hooked struct {
	TxRunner
	hooks []BeginHook
}

func (h hooked) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hook := range h.hooks {
			if err := hook(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

// StatementTimeout caps each statement of the tx at d; d under a millisecond is a no-op
func StatementTimeout(d time.Duration) BeginHook {
	stmt := "SET LOCAL statement_timeout = " + strconv.FormatInt(d.Milliseconds(), 10)
	return func(ctx context.Context, q Queryer) error {
		if d.Milliseconds() <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, stmt)
		return err
	}
}
