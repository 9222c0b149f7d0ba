// Package service runs one ETL pass: fetch every market in keyword batches,
// melt and annotate, drop incomplete and already stored dates, append the rest
package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"trendsetl/internal/core/batch"
	"trendsetl/internal/core/reshape"
	"trendsetl/internal/core/throttle"
	"trendsetl/internal/core/trend"
	"trendsetl/internal/core/watermark"
	"trendsetl/internal/modkit/repokit"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/metrics"
	"trendsetl/internal/services/trendsetl/domain"

	"github.com/google/uuid"
)

// Config holds the run knobs
type Config struct {
	Timeframe string        // upstream window; default "now 7-d"
	BatchSize int           // keywords per query, clamped to 1..5
	Pace      time.Duration // spacing between upstream requests
	Lag       time.Duration // completeness lag; default 72h
	Scope     trend.Scope   // watermark scope; default global
}

func (c Config) withDefaults() Config {
	if c.Timeframe == "" {
		c.Timeframe = trend.DefaultTimeframe
	}
	if c.BatchSize == 0 {
		c.BatchSize = batch.MaxSize
	}
	c.BatchSize = batch.Clamp(c.BatchSize)
	if c.Lag <= 0 {
		c.Lag = watermark.DefaultLag
	}
	if c.Scope != trend.ScopeMarket {
		c.Scope = trend.ScopeGlobal
	}
	return c
}

// Service implements domain.RunnerPort
type Service struct {
	Source    domain.Source
	Warehouse domain.Warehouse
	Catalog   domain.CatalogPort
	Metrics   *metrics.Metrics
	Cfg       Config

	// DB and Binder back the optional run ledger; nil DB disables it
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.LedgerRepo]

	// NewPacer builds one pacer per run
	NewPacer func(time.Duration) domain.Pacer

	now   func() time.Time
	newID func() string

	busy        sync.Mutex
	ledgerReady bool
}

var (
	_ domain.RunnerPort  = (*Service)(nil)
	_ domain.HistoryPort = (*Service)(nil)
)

// New constructs the service; source, warehouse and catalog are required
func New(
	src domain.Source,
	wh domain.Warehouse,
	cat domain.CatalogPort,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if src == nil {
		panic("trendsetl.Service requires a non nil Source")
	}
	if wh == nil {
		panic("trendsetl.Service requires a non nil Warehouse")
	}
	if cat == nil {
		panic("trendsetl.Service requires a non nil Catalog")
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		Source:    src,
		Warehouse: wh,
		Catalog:   cat,
		Metrics:   m,
		Cfg:       cfg.withDefaults(),
		NewPacer:  func(d time.Duration) domain.Pacer { return throttle.New(d) },
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithLedger enables the run ledger on db
func (s *Service) WithLedger(db repokit.TxRunner, b repokit.Binder[domain.LedgerRepo]) *Service {
	s.DB, s.Binder = db, b
	return s
}

// Markets returns the catalog
func (s *Service) Markets() []domain.Market { return s.Catalog.All() }

// TryRun runs unless another run holds the service, in which case it returns a Conflict error
func (s *Service) TryRun(ctx context.Context, tr domain.Trigger) (domain.Result, domain.Report, error) {
	if !s.busy.TryLock() {
		return domain.Result{}, domain.Report{}, perr.Conflictf("a run is already in progress")
	}
	defer s.busy.Unlock()
	res, rep := s.Run(ctx, tr)
	return res, rep, nil
}

// Run executes one pass. It never panics and never returns an error: every
// outcome, including a recovered panic, is a Result.
func (s *Service) Run(ctx context.Context, tr domain.Trigger) (res domain.Result, rep domain.Report) {
	rep = domain.Report{
		RunID:     s.newID(),
		Trigger:   tr,
		Scope:     s.Cfg.Scope,
		Target:    s.Warehouse.Target(),
		StartedAt: s.now().UTC(),
		Status:    domain.StatusRunning,
	}
	ctx = logger.WithRun(ctx, rep.RunID)
	log := logger.C(ctx)
	log.Info().
		Strs("markets", tr.Markets).
		Bool("dry_run", tr.DryRun).
		Str("scope", string(rep.Scope)).
		Str("target", rep.Target).
		Msg("run started")

	finish := s.Metrics.RunStarted()
	s.ledgerStart(ctx, rep)

	defer func() {
		if r := recover(); r != nil {
			err := perr.PanicErrf("%v", r)
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("run panicked")
			res = domain.Failed(err)
			rep.Status = domain.StatusFailed
			rep.Error = err.Error()
		}
		rep.FinishedAt = s.now().UTC()
		finish(rep.Status, res.OK())
		s.ledgerFinish(ctx, rep, res)

		ev := log.Info()
		if !res.OK() {
			ev = log.Error().Str("error", rep.Error)
		}
		ev.Str("status", rep.Status).
			Int("status_code", res.StatusCode).
			Int("batches_ok", rep.BatchesOK).
			Int("batches_empty", rep.BatchesEmpty).
			Int("batches_failed", rep.BatchesFailed).
			Int("rows_extracted", rep.RowsExtracted).
			Int("rows_loaded", rep.RowsLoaded).
			Stringer("watermark", rep.Watermark).
			Dur("elapsed", rep.Elapsed()).
			Msg(res.Body)
	}()

	res = s.run(ctx, tr, &rep)
	return res, rep
}

// run is the state machine; each early return sets rep.Status
func (s *Service) run(ctx context.Context, tr domain.Trigger, rep *domain.Report) domain.Result {
	fail := func(err error) domain.Result {
		rep.Status = domain.StatusFailed
		rep.Error = err.Error()
		return domain.Failed(err)
	}

	mkts, err := s.Catalog.Select(tr.Markets)
	if err != nil {
		return fail(err)
	}
	rep.Markets = len(mkts)

	// fetch + reshape
	recs, err := s.extract(ctx, mkts, rep)
	if err != nil {
		return fail(err)
	}
	rep.RowsExtracted = len(recs)
	s.Metrics.Rows(metrics.StageExtracted, len(recs))
	if len(recs) == 0 {
		rep.Status = domain.StatusNoData
		return domain.NoData()
	}

	// completeness
	rep.Cutoff = watermark.Cutoff(s.now().UTC(), s.Cfg.Lag)
	complete := watermark.ApplyCutoff(recs, rep.Cutoff)
	rep.RowsComplete = len(complete)
	s.Metrics.Rows(metrics.StageComplete, len(complete))
	logger.C(ctx).Debug().Time("cutoff", rep.Cutoff).Int("rows", len(complete)).Msg("completeness filter applied")
	if len(complete) == 0 {
		rep.Status = domain.StatusNoCompleteWeek
		return domain.NoCompleteWeek()
	}

	// watermark
	ws := s.watermarks(ctx)
	rep.Watermark = ws.Global
	fresh := watermark.Apply(complete, ws, s.Cfg.Scope)
	rep.RowsNew = len(fresh)
	s.Metrics.Rows(metrics.StageNew, len(fresh))
	if len(fresh) == 0 {
		rep.Status = domain.StatusNoNewData
		return domain.NoNewData()
	}

	if tr.DryRun {
		rep.Status = domain.StatusDryRun
		return domain.DryRun(len(fresh))
	}

	// load
	n, err := s.Warehouse.Append(ctx, fresh)
	if err != nil {
		return fail(err)
	}
	rep.RowsLoaded = n
	s.Metrics.Rows(metrics.StageLoaded, n)
	rep.Status = domain.StatusLoaded
	return domain.Completed(n)
}

// extract fetches every batch of every market in order. Failed and empty batches
// are counted and skipped; only a cancelled ctx stops the loop.
func (s *Service) extract(ctx context.Context, mkts []domain.Market, rep *domain.Report) ([]domain.Record, error) {
	pacer := s.NewPacer(s.Cfg.Pace)
	extractedAt := s.now().UTC()

	var out []domain.Record
	for _, m := range mkts {
		for i, kws := range batch.Partition(m.Keywords, s.Cfg.BatchSize) {
			if err := ctx.Err(); err != nil {
				return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "run interrupted")
			}
			fr := s.fetch(ctx, pacer, m, i, kws)
			rep.Add(fr)
			s.Metrics.Batch(m.Code, fr.Kind.String(), fr.Elapsed)
			if fr.Kind != domain.FetchOK {
				continue
			}
			out = append(out, reshape.Annotate(reshape.Melt(fr.Frame), m.Code, m.GeoCode, extractedAt)...)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "run interrupted")
	}
	if st, ok := pacer.(interface{ Stats() (int, time.Duration) }); ok {
		waits, slept := st.Stats()
		logger.C(ctx).Debug().Int("waits", waits).Dur("slept", slept).Msg("extract paced")
	}
	return out, nil
}

// fetch runs one batch behind the pacer and classifies the outcome
func (s *Service) fetch(ctx context.Context, p domain.Pacer, m domain.Market, idx int, kws []string) domain.FetchResult {
	fr := domain.FetchResult{Market: m.Code, Batch: idx, Keywords: kws}
	log := logger.C(ctx).With().Str("market", m.Code).Str("geo", m.GeoCode).Int("batch", idx).Logger()

	if err := p.Wait(ctx); err != nil {
		fr.Kind, fr.Err = domain.FetchFailed, err
		log.Warn().Err(err).Msg("pacer wait aborted")
		return fr
	}

	start := s.now()
	f, err := s.Source.InterestOverTime(ctx, domain.Query{
		Keywords:  kws,
		Geo:       m.GeoCode,
		Timeframe: s.Cfg.Timeframe,
	})
	fr.Elapsed = s.now().Sub(start)

	switch {
	case err != nil:
		fr.Kind, fr.Err = domain.FetchFailed, err
		log.Error().Err(err).
			Strs("keywords", kws).
			Str("code", perr.CodeOf(err).String()).
			Bool("retryable", perr.Retryable(err)).
			Msg("batch fetch failed")
	case f.Empty():
		fr.Kind = domain.FetchEmpty
		log.Warn().Strs("keywords", kws).Msg("batch returned no data")
	default:
		fr.Kind, fr.Frame = domain.FetchOK, f
		log.Info().Int("rows", len(f.Rows)).Dur("latency", fr.Elapsed).Msg("batch fetched")
	}
	return fr
}

// watermarks reads destination state for the configured scope; read errors mean unknown
func (s *Service) watermarks(ctx context.Context) domain.Watermarks {
	log := logger.C(ctx)
	var ws domain.Watermarks

	if s.Cfg.Scope == trend.ScopeMarket {
		by, err := s.Warehouse.LatestByMarket(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not read per-market watermarks; loading everything")
			return ws
		}
		ws.ByMarket = by
		log.Info().Int("markets", len(by)).Msg("per-market watermarks read")
		return ws
	}

	wm, err := s.Warehouse.LatestDate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not read watermark; loading everything")
		return ws
	}
	ws.Global = wm
	log.Info().Stringer("watermark", wm).Msg("watermark read")
	return ws
}

func (s *Service) ledgerStart(ctx context.Context, rep domain.Report) {
	if s.DB == nil || s.Binder == nil {
		return
	}
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		l := s.Binder.Bind(q)
		if !s.ledgerReady {
			if err := l.Ensure(ctx); err != nil {
				return fmt.Errorf("ensure ledger: %w", err)
			}
		}
		return l.StartRun(ctx, rep)
	})
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("ledger start failed")
		return
	}
	s.ledgerReady = true
}

// ledgerFinish survives a cancelled run context so the outcome is still recorded
func (s *Service) ledgerFinish(ctx context.Context, rep domain.Report, res domain.Result) {
	if s.DB == nil || s.Binder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).FinishRun(ctx, rep, res)
	})
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("ledger finish failed")
	}
}

// Recent lists ledger rows; without a ledger it returns an Unavailable error
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.RunRow, error) {
	if s.DB == nil || s.Binder == nil {
		return nil, perr.New(perr.ErrorCodeUnavailable, "run ledger is not configured")
	}
	var out []domain.RunRow
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		rows, err := s.Binder.Bind(q).Recent(ctx, limit)
		out = rows
		return err
	})
	if err != nil {
		if perr.IsUndefinedTable(err) {
			return []domain.RunRow{}, nil
		}
		return nil, perr.FromPostgres(err, "list runs")
	}
	return out, nil
}
