// Package logger holds the process root zerolog logger and the ctx scoped
// run and request fields every log line of a run carries
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"trendsetl/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the logging type used across the repo
type Logger = zerolog.Logger

// Options shape the root logger
type Options struct {
	Level   string // trace, debug, info, warn, error; anything else is info
	Format  string // json or console
	Service string
	Caller  bool
	Sample  int // keep one event in Sample when > 1
	Fields  map[string]string
	Out     io.Writer // stdout when nil
}

// FromEnv reads LOG_* from the process environment
func FromEnv() Options { return FromConf(raw.New()) }

// FromConf reads LOG_* from c
func FromConf(c raw.Conf) Options {
	lc := c.Prefix("LOG_")
	opt := Options{
		Level:   strings.ToLower(lc.Get("LEVEL", "info")),
		Format:  strings.ToLower(lc.Get("FORMAT", "json")),
		Service: lc.Get("SERVICE", "trendsetl"),
		Caller:  lc.GetBool("CALLER", false),
		Sample:  lc.GetInt("SAMPLE_EVERY", 0),
	}
	if comp := lc.Get("COMPONENT", ""); comp != "" {
		opt.Fields = map[string]string{"component": comp}
	}
	return opt
}

var (
	initOnce sync.Once
	root     atomic.Pointer[Logger]
)

// Init installs the root logger; calls after the first are ignored
func Init(opt Options) {
	initOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := New(opt)
		root.Store(&l)
	})
}

// Get returns the root logger, initializing it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// New builds a standalone logger from opt without touching the root
func New(opt Options) Logger {
	out := opt.Out
	if out == nil {
		out = os.Stdout
	}
	if opt.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lc := zerolog.New(out).Level(parseLevel(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		lc = lc.Str("service", opt.Service)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		lc = lc.Str("go_version", bi.GoVersion)
	}
	for k, v := range opt.Fields {
		lc = lc.Str(k, v)
	}
	if opt.Caller {
		lc = lc.Caller()
	}

	l := lc.Logger()
	if opt.Sample > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.Sample)})
	}
	return l
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type ctxKey int

const (
	requestKey ctxKey = iota
	runKey
)

// WithRequest tags ctx with the inbound request id; empty ids leave ctx alone
func WithRequest(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKey, id)
}

// WithRun tags ctx with the ETL run id; empty ids leave ctx alone
func WithRun(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, id)
}

// RunID returns the run id on ctx or ""
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runKey).(string)
	return id
}

// C returns the root logger with ctx ids attached
func C(ctx context.Context) *Logger {
	l := scoped(*Get(), ctx)
	return &l
}

// Named returns the root logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

func scoped(l Logger, ctx context.Context) Logger {
	req, _ := ctx.Value(requestKey).(string)
	run := RunID(ctx)
	if req == "" && run == "" {
		return l
	}
	lc := l.With()
	if req != "" {
		lc = lc.Str("request_id", req)
	}
	if run != "" {
		lc = lc.Str("run_id", run)
	}
	return lc.Logger()
}
