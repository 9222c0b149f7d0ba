// Package module wires the trends ETL into the API and the one-shot job using modkit
package module

import (
	"trendsetl/internal/adapters/trends"
	"trendsetl/internal/core/markets"
	modkit "trendsetl/internal/modkit"
	"trendsetl/internal/modkit/httpkit"
	"trendsetl/internal/platform/metrics"

	"trendsetl/internal/services/trendsetl/domain"
	thttp "trendsetl/internal/services/trendsetl/http"
	trepo "trendsetl/internal/services/trendsetl/repo"
	tsvc "trendsetl/internal/services/trendsetl/service"
)

// Module implements the trendsetl module
type Module struct {
	b      modkit.Built
	routes thttp.Deps
	svc    *tsvc.Service
	ports  Ports
}

// Inject declares the ports the caller supplies through modkit.WithPorts.
// Warehouse is required; Source defaults to the trends web client.
type Inject struct {
	Warehouse domain.Warehouse
	Source    domain.Source
}

// Ports is what the module exposes to other modules and binaries
type Ports struct {
	Runner  domain.RunnerPort
	Catalog domain.CatalogPort
	History domain.HistoryPort
}

// New constructs the module. It panics when the catalog does not load or no warehouse
// was injected; both are startup configuration errors.
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("trendsetl"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)
	log := deps.Logger("trendsetl")

	var injected Inject
	if p, ok := b.Ports.(Inject); ok {
		injected = p
	}
	if injected.Warehouse == nil {
		panic("trendsetl module requires a Warehouse port")
	}

	cat, err := markets.Load(cfg.MarketsFile)
	if err != nil {
		log.Panic().Err(err).Str("file", cfg.MarketsFile).Msg("market catalog")
	}

	src := injected.Source
	if src == nil {
		src = trends.NewClient(trends.Options{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			HL:        cfg.HL,
			TZ:        cfg.TZ,
		})
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	svc := tsvc.New(src, injected.Warehouse, cat, m, tsvc.Config{
		Timeframe: cfg.Timeframe,
		BatchSize: cfg.BatchSize,
		Pace:      cfg.Pace,
		Lag:       cfg.Lag,
		Scope:     cfg.Scope,
	})
	if deps.PG != nil {
		svc.WithLedger(deps.PG, trepo.NewPG())
	}

	log.Info().
		Int("markets", cat.Len()).
		Strs("codes", cat.Codes()).
		Str("target", injected.Warehouse.Target()).
		Str("scope", string(cfg.Scope)).
		Dur("pace", cfg.Pace).
		Bool("ledger", deps.PG != nil).
		Msg("trendsetl module ready")

	mod := &Module{
		b:      b,
		svc:    svc,
		ports:  Ports{Runner: svc, Catalog: cat},
		routes: thttp.Deps{Runner: svc, Catalog: cat},
	}
	if deps.PG != nil {
		mod.ports.History = svc
		mod.routes.History = svc
	}
	return mod
}

// MountRoutes mounts the module routes; an empty prefix mounts on r directly
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { thttp.Register(rr, m.routes) })
}

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.b.Prefix }

// Ports returns the exposed port set
func (m *Module) Ports() any { return m.ports }
