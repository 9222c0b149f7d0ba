package httpkit

import (
	"net/http"
	"time"

	"trendsetl/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	// Timeout bounds each request; a full ETL run can take minutes
	Timeout time.Duration
	// Slow marks access log lines at warn level
	Slow time.Duration
	CORS middleware.CORSOptions
}

// CommonStack returns the baseline middleware slice for the versioned API
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	stack := middleware.Defaults(o.Timeout)
	return append(stack,
		middleware.AccessLog(middleware.AccessLogOptions{Slow: o.Slow}),
		middleware.CORS(o.CORS),
	)
}

// Bearer is the static token guard for trigger endpoints
func Bearer(token, caller string) func(http.Handler) http.Handler {
	return middleware.Bearer(token, caller)
}
