// Package modkit provides module wiring and core deps
package modkit

import (
	"trendsetl/internal/modkit/repokit"
	"trendsetl/internal/platform/config"
	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/metrics"
	"trendsetl/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     *logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Metrics *metrics.Metrics
}

// FromStore fills the backend seams from an opened store, leaving nil for disabled backends
func (d Deps) FromStore(st *store.Store) Deps {
	if st == nil {
		return d
	}
	d.PG = st.PG
	d.CH = st.CH
	return d
}

// Logger returns Log or the named root logger when unset
func (d Deps) Logger(component string) *logger.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logger.Named(component)
}
