package pg

import (
	"context"
	"strings"
	"time"

	"trendsetl/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer is told about every statement the sql adapter runs
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs statements on its own debug-enabled child of root: plain ones at
// debug, slow ones at warn, failures at error. The run id on ctx is attached.
func Tracer(root logger.Logger) QueryTracer {
	return logTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type logTracer struct{ log logger.Logger }

func (t logTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	var evt *zerolog.Event
	switch {
	case ev.Err != nil:
		evt = t.log.Error().Err(ev.Err)
	case ev.Slow:
		evt = t.log.Warn()
	default:
		evt = t.log.Debug()
	}
	if id := logger.RunID(ctx); id != "" {
		evt = evt.Str("run_id", id)
	}
	evt.Str("sql", oneLine(ev.SQL)).
		Int("args", len(ev.Args)).
		Float64("elapsed_ms", float64(ev.Elapsed.Microseconds())/1000).
		Bool("slow", ev.Slow).
		Msg("pg query")
}

func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }
