// Package api provides the HTTP API for the application
package api

import (
	"net/http"
	"time"

	"trendsetl/internal/platform/config"
	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/metrics"
	phttp "trendsetl/internal/platform/net/http"
	"trendsetl/internal/platform/net/middleware"
	"trendsetl/internal/platform/store"

	"trendsetl/internal/modkit"
	"trendsetl/internal/modkit/httpkit"
	"trendsetl/internal/modkit/module"

	metamod "trendsetl/internal/services/api/meta/module"
	"trendsetl/internal/services/trendsetl/domain"
	etlmod "trendsetl/internal/services/trendsetl/module"
)

// Options are the API options
type Options struct {
	Config    config.Conf // CORE_API_* view
	Root      config.Conf // unprefixed view for module options
	Store     *store.Store
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Warehouse domain.Warehouse

	// Source overrides the upstream client, mostly for tests
	Source domain.Source
}

// Mount mounts the API onto r: /healthz, /metrics and the versioned routes under /api/v1
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Log:     opt.Logger,
		Cfg:     opt.Root,
		Metrics: opt.Metrics,
	}.FromStore(opt.Store)

	etl := etlmod.New(deps, modkit.WithPorts(etlmod.Inject{
		Warehouse: opt.Warehouse,
		Source:    opt.Source,
	}))
	meta := metamod.New(deps, modkit.WithPorts(metamod.Inject{Target: opt.Warehouse.Target()}))

	mods := []module.Module{meta, etl}

	r.Use(middleware.Heartbeat("/healthz"))
	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics.Handler())
	}

	stack := httpkit.CommonStack(httpkit.StackOptions{
		Timeout: opt.Config.MayDuration("TIMEOUT", 15*time.Minute),
		Slow:    opt.Config.MayDuration("SLOW", 5*time.Second),
		CORS: middleware.CORSOptions{
			AllowedOrigins: opt.Config.MayCSV("CORS_ORIGINS", nil),
			ExposedHeaders: []string{"X-Run-Id", "X-Request-ID"},
		},
	})
	if token := opt.Config.MayString("TOKEN", ""); token != "" {
		stack = append(stack, httpkit.Bearer(token, "scheduler"))
	}

	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
}

// Handler is a convenience for tests: a chi mux with the API mounted
func Handler(opt Options) http.Handler {
	srv := phttp.NewServer(opt.Config)
	Mount(srv.Router(), opt)
	return srv.Handler()
}
