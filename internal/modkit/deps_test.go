package modkit

import (
	"context"
	"testing"

	"trendsetl/internal/platform/config"
	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/store"
)

type fakeTx struct{ store.RowQuerier }

func (fakeTx) Tx(context.Context, func(store.RowQuerier) error) error { return nil }

func TestDeps_FromStore(t *testing.T) {
	t.Parallel()

	d := Deps{Cfg: config.New()}
	if got := d.FromStore(nil); got.PG != nil || got.CH != nil {
		t.Fatal("nil store should leave seams empty")
	}

	st := &store.Store{PG: fakeTx{}}
	got := d.FromStore(st)
	if got.PG == nil {
		t.Fatal("expected PG seam from store")
	}
	if got.CH != nil {
		t.Fatal("disabled CH should stay nil")
	}
	if d.PG != nil {
		t.Fatal("FromStore must not mutate the receiver")
	}
}

func TestDeps_Logger(t *testing.T) {
	t.Parallel()

	var d Deps
	if d.Logger("x") == nil {
		t.Fatal("expected fallback logger")
	}
	l := logger.Named("custom")
	d.Log = l
	if d.Logger("x") != l {
		t.Fatal("expected configured logger")
	}
}
