// Command trendsetl runs one incremental Google Trends to warehouse pass and exits.
// The Result is printed to stdout as JSON; a 500 Result exits non-zero.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trendsetl/internal/adapters/warehouse"
	"trendsetl/internal/modkit"
	"trendsetl/internal/modkit/module"
	"trendsetl/internal/platform/config"
	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/metrics"
	"trendsetl/internal/platform/net/http/bind"
	"trendsetl/internal/platform/store"

	"trendsetl/internal/services/trendsetl/domain"
	etlmod "trendsetl/internal/services/trendsetl/module"

	"github.com/joho/godotenv"
)

func main() { os.Exit(run()) }

func run() int {
	// local runs read a .env file; in the scheduler the environment is already set
	_ = godotenv.Load()

	var (
		fMarkets = flag.String("markets", "", "comma separated market codes; empty runs every market")
		fDryRun  = flag.Bool("dry-run", false, "extract and filter but do not load")
		fTimeout = flag.Duration("timeout", 9*time.Minute, "hard deadline for the whole run")
	)
	flag.Parse()

	root := config.New()
	l := logger.Get()

	tr := domain.Trigger{Markets: splitCSV(*fMarkets), DryRun: *fDryRun}
	if err := bind.Get().Validator.Struct(tr); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		l.Error().Str("field", field).Msg(msg)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *fTimeout)
	defer cancel()

	st, err := store.Open(ctx, store.ConfigFromEnv(root, "trendsetl", "job"), store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	wh, err := warehouse.Open(ctx, warehouse.ConfigFromEnv(root), warehouse.Backends{PG: st.PG, CH: st.CH})
	if err != nil {
		l.Error().Err(err).Msg("warehouse.Open failed")
		return 1
	}
	defer func() {
		if err := wh.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close warehouse")
		}
	}()

	m := metrics.New()
	deps := modkit.Deps{Log: l, Cfg: root, Metrics: m}.FromStore(st)
	etl := etlmod.New(deps, modkit.WithPorts(etlmod.Inject{Warehouse: wh}))
	runner := module.MustPortsOf[domain.RunnerPort](etl)

	res, rep := runner.Run(ctx, tr)

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(res); err != nil {
		l.Error().Err(err).Msg("write result")
	}

	pushURL := root.Prefix("CORE_METRICS_").MayString("PUSHGATEWAY", "")
	pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pcancel()
	if err := m.Push(pctx, pushURL, "trendsetl"); err != nil {
		l.Warn().Err(err).Str("url", pushURL).Msg("metrics push failed")
	}

	l.Info().Str("run_id", rep.RunID).Str("status", rep.Status).Dur("elapsed", rep.Elapsed()).Msg("done")
	if !res.OK() {
		return 1
	}
	return 0
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if v := strings.ToUpper(strings.TrimSpace(p)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
