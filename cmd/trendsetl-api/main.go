// Command trendsetl-api serves the HTTP trigger: the scheduler POSTs /api/v1/runs
// and gets the run Result back as the response
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendsetl/internal/adapters/warehouse"
	"trendsetl/internal/platform/config"
	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/metrics"
	phttp "trendsetl/internal/platform/net/http"
	"trendsetl/internal/platform/store"

	"trendsetl/internal/services/api"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	// service-scoped config for HTTP (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// optional stores: ledger, sql warehouse drivers, readiness
	st, err := store.Open(ctx, store.ConfigFromEnv(root, "trendsetl", "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	wh, err := warehouse.Open(ctx, warehouse.ConfigFromEnv(root), warehouse.Backends{PG: st.PG, CH: st.CH})
	if err != nil {
		l.Panic().Err(err).Msg("warehouse.Open failed")
	}
	defer func() {
		if err := wh.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close warehouse")
		}
	}()

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	api.Mount(srv.Router(), api.Options{
		Config:    apiCfg,
		Root:      root,
		Store:     st,
		Logger:    l,
		Metrics:   metrics.New().WithProcess(),
		Warehouse: wh,
	})

	if err := srv.Run(ctx, apiCfg.MayDuration("SHUTDOWN_GRACE", 30*time.Second)); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
