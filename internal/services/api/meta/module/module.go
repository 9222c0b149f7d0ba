// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"time"

	modkit "trendsetl/internal/modkit"
	"trendsetl/internal/modkit/httpkit"
	str "trendsetl/internal/platform/strings"

	metahttp "trendsetl/internal/services/api/meta/http"
)

// Inject carries optional values the meta endpoints report
type Inject struct {
	Target string // destination table, shown on /service
}

// Module implements the modkit.Module interface
type Module struct {
	b      modkit.Built
	routes metahttp.Deps
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	var in Inject
	if p, ok := b.Ports.(Inject); ok {
		in = p
	}

	hd := metahttp.Deps{
		ServiceName: "trendsetl-api",
		StartedAt:   time.Now(),
		Target:      in.Target,
	}
	// keep untyped nil for disabled backends so they report as skipped
	if deps.PG != nil {
		hd.PG = deps.PG
	}
	if deps.CH != nil {
		hd.CH = deps.CH
	}
	return &Module{b: b, routes: hd}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.routes) })
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.Or(m.b.Name, "meta") }

// Prefix implements the modkit.Module interface
func (m *Module) Prefix() string { return m.b.Prefix }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
