// Package http provides the run trigger, run history and market catalog endpoints
package http

import (
	stdhttp "net/http"
	"strconv"

	"trendsetl/internal/modkit/httpkit"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/services/trendsetl/domain"
)

const (
	defaultHistory = 20
	maxHistory     = 200
)

// Deps are the handler dependencies; History may be nil
type Deps struct {
	Runner  domain.RunnerPort
	Catalog domain.CatalogPort
	History domain.HistoryPort
}

type handlers struct{ deps Deps }

// Register mounts the routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}
	httpkit.PostJSON[domain.Trigger](r, "/runs", h.run, httpkit.OptionalBody)
	httpkit.Get(r, "/runs", h.recent)
	httpkit.Get(r, "/markets", h.markets)
}

// MarketsResponse lists the catalog in run order
type MarketsResponse struct {
	Markets []domain.Market `json:"markets"`
}

// RunsResponse lists recent ledger rows, newest first
type RunsResponse struct {
	Runs []domain.RunRow `json:"runs"`
}

// run executes one pass synchronously. The HTTP status mirrors Result.StatusCode and
// the body is the bare Result so schedulers can match on it.
func (h *handlers) run(r *stdhttp.Request, in domain.Trigger) (any, error) {
	res, rep, err := h.deps.Runner.TryRun(r.Context(), in)
	if err != nil {
		return nil, err
	}
	resp := httpkit.Raw(res.StatusCode, res)
	resp.Header = stdhttp.Header{"X-Run-Id": []string{rep.RunID}}
	return resp, nil
}

func (h *handlers) recent(r *stdhttp.Request) (any, error) {
	if h.deps.History == nil {
		return nil, perr.New(perr.ErrorCodeNotFound, "run history is not enabled")
	}
	limit := defaultHistory
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistory {
			return nil, perr.WithField(perr.InvalidArgf("limit must be 1..%d", maxHistory), "limit")
		}
		limit = n
	}
	rows, err := h.deps.History.Recent(r.Context(), limit)
	if err != nil {
		return nil, err
	}
	return RunsResponse{Runs: rows}, nil
}

func (h *handlers) markets(_ *stdhttp.Request) (any, error) {
	return MarketsResponse{Markets: h.deps.Catalog.All()}, nil
}
