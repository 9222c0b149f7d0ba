// Package repokit is the seam SQL repos are written against: the store's query
// surface under shorter names, transactions, and binding a repo to a tx
package repokit

import (
	"context"

	"trendsetl/internal/platform/store"
)

type (
	// Queryer runs statements; both the pool and an open tx satisfy it
	Queryer = store.RowQuerier
	// TxRunner is a Queryer that can also open a transaction
	TxRunner = store.TxRunner

	Rows       = store.Rows
	Row        = store.Row
	CommandTag = store.CommandTag
)

// WithTx runs fn in one transaction on db; fn's error rolls it back
func WithTx(ctx context.Context, db TxRunner, fn func(q Queryer) error) error {
	return db.Tx(ctx, fn)
}

// Binder builds a repo over a Queryer, usually the tx handed out by WithTx
type Binder[T any] interface {
	Bind(q Queryer) T
}

// BindFunc lets a plain constructor act as a Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }
