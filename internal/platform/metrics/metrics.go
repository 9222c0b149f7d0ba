// Package metrics holds the pipeline's prometheus collectors on a private registry,
// exposed over HTTP for the API binary and pushed to a Pushgateway by the one-shot job
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "trendsetl"

// Batch outcomes
const (
	BatchOK     = "ok"
	BatchEmpty  = "empty"
	BatchFailed = "failed"
)

// Row stages, in pipeline order
const (
	StageExtracted = "extracted"
	StageComplete  = "complete"
	StageNew       = "new"
	StageLoaded    = "loaded"
)

// Metrics bundles the collectors; the zero value is not usable, build with New
type Metrics struct {
	reg *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	runsInFlight  prometheus.Gauge
	lastSuccess   prometheus.Gauge
	batches       *prometheus.CounterVec
	batchDuration prometheus.Histogram
	rows          *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "ETL runs by outcome",
		}, []string{"outcome"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full ETL run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		}),
		runsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Runs currently executing",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished with status 200",
		}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Upstream keyword batches by outcome",
		}, []string{"market", "outcome"}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Upstream fetch latency per batch",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Records seen at each pipeline stage",
		}, []string{"stage"}),
	}
}

// WithProcess adds the go runtime and process collectors, for long-lived binaries
func (m *Metrics) WithProcess() *Metrics {
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// RunStarted marks a run in flight and returns a func that records its end
func (m *Metrics) RunStarted() func(outcome string, ok bool) {
	start := time.Now()
	m.runsInFlight.Inc()
	return func(outcome string, ok bool) {
		m.runsInFlight.Dec()
		m.runDuration.Observe(time.Since(start).Seconds())
		m.runs.WithLabelValues(outcome).Inc()
		if ok {
			m.lastSuccess.SetToCurrentTime()
		}
	}
}

// Batch records one upstream batch
func (m *Metrics) Batch(market, outcome string, elapsed time.Duration) {
	m.batches.WithLabelValues(market, outcome).Inc()
	m.batchDuration.Observe(elapsed.Seconds())
}

// Rows adds n records at stage
func (m *Metrics) Rows(stage string, n int) {
	if n > 0 {
		m.rows.WithLabelValues(stage).Add(float64(n))
	}
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Push sends the registry to a Pushgateway under job; an empty url is a no-op
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(m.reg).PushContext(ctx)
}
