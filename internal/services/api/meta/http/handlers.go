// Package http serves the /meta probes: liveness, readiness, build and process info
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"trendsetl/internal/core/version"
	"trendsetl/internal/modkit/httpkit"

	"golang.org/x/sync/errgroup"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// Deps are the handler dependencies; a nil backend is reported as skipped
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Target      string
	PG          any
	CH          any

	now func() time.Time
}

// Check statuses
const (
	CheckOK      = "ok"
	CheckFail    = "fail"
	CheckSkipped = "skipped"
	CheckUnknown = "unknown"
)

const probeTimeout = 2 * time.Second

type handlers struct {
	Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.now == nil {
		d.now = time.Now
	}
	h := &handlers{Deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", func(*http.Request) (any, error) { return version.Info(), nil })
	httpkit.Get(r, "/service", h.service)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Now     string `json:"now"`
}

// ReadyCheck is the outcome of probing one backend
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse is ok when every probe passes or is skipped, degraded when a
// backend cannot be probed, and fail (served as 503) when any probe errors
type ReadyResponse struct {
	Status string       `json:"status"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// ServiceResponse describes the process; Uptime is in seconds
type ServiceResponse struct {
	Name    string `json:"name"`
	Target  string `json:"target,omitempty"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime"`
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.ServiceName, Started: stamp(h.StartedAt), Now: stamp(h.now())}, nil
}

func (h *handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.ServiceName,
		Target:  h.Target,
		Started: stamp(h.StartedAt),
		Uptime:  int64(h.now().Sub(h.StartedAt) / time.Second),
	}, nil
}

// ready probes pg and ch in parallel. The warehouse is not probed: every
// bigquery round trip is billed.
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	backends := []struct {
		name string
		dep  any
	}{{"pg", h.PG}, {"ch", h.CH}}

	checks := make([]ReadyCheck, len(backends))
	var g errgroup.Group
	for i, b := range backends {
		g.Go(func() error {
			checks[i] = probe(ctx, b.name, b.dep)
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadyResponse{Status: CheckOK, Checks: checks, Now: stamp(h.now())}
	for _, c := range checks {
		switch {
		case c.Status == CheckFail:
			resp.Status = CheckFail
		case c.Status == CheckUnknown && resp.Status == CheckOK:
			resp.Status = "degraded"
		}
	}
	if resp.Status == CheckFail {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: resp}, nil
	}
	return resp, nil
}

func probe(ctx stdctx.Context, name string, dep any) ReadyCheck {
	c := ReadyCheck{Name: name}
	p, ok := dep.(Pinger)
	switch {
	case dep == nil:
		c.Status = CheckSkipped
	case !ok:
		c.Status = CheckUnknown
	default:
		c.Status = CheckOK
		if err := p.Ping(ctx); err != nil {
			c.Status, c.Error = CheckFail, err.Error()
		}
	}
	return c
}
