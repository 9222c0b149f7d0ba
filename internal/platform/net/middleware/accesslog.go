package middleware

import (
	"net/http"
	"time"

	"trendsetl/internal/platform/logger"
	pnet "trendsetl/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLogOptions configures AccessLog
type AccessLogOptions struct {
	// Slow logs requests at warn once they take at least this long; zero disables
	Slow time.Duration
	// Log replaces the root logger, mostly for tests
	Log *logger.Logger
}

// AccessLog puts the request id on the logger context and writes one line per
// request once the handler returns. A run id the handler set as X-Run-Id is
// logged too so trigger calls can be joined with the run's own lines.
func AccessLog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), pnet.RequestID(r.Context()))
			r = r.WithContext(ctx)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			log := logger.C(ctx)
			if opt.Log != nil {
				log = opt.Log
			}
			evt := log.Info()
			if opt.Slow > 0 && elapsed >= opt.Slow {
				evt = log.Warn()
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if c := pnet.Caller(ctx); c != "" {
				evt = evt.Str("caller", c)
			}
			if id := ww.Header().Get("X-Run-Id"); id != "" {
				evt = evt.Str("run_id", id)
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Msg("request done")
		})
	}
}
