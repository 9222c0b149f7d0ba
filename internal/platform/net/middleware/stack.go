// Package middleware holds the http middleware the API mounts, built on chi's
// and go-chi/cors so callers never import chi directly
package middleware

import (
	"compress/flate"
	"net/http"
	"time"

	pstrings "trendsetl/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Defaults is the outer stack of every API route, outermost first. Recovery
// sits inside RequestID so a panic response still carries the id.
func Defaults(timeout time.Duration) []func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return []func(http.Handler) http.Handler{
		chimw.RealIP,
		chimw.RequestID,
		RecoverJSON,
		chimw.Timeout(timeout),
		chimw.NewCompressor(flate.DefaultCompression).Handler,
		chimw.NoCache,
	}
}

// Heartbeat answers GET path with 200 before any routing, for load balancers
func Heartbeat(path string) func(http.Handler) http.Handler { return chimw.Heartbeat(path) }

// CORSOptions is the part of go-chi/cors the API configures
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string // GET, POST, OPTIONS when empty
	AllowedHeaders   []string // Accept, Authorization, Content-Type, X-Request-ID when empty
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// CORS builds the cross origin handler for browser dashboards calling the API
func CORS(o CORSOptions) func(http.Handler) http.Handler {
	return chicors.Handler(chicors.Options{
		AllowedOrigins:   o.AllowedOrigins,
		AllowedMethods:   pstrings.IfEmpty(o.AllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		AllowedHeaders:   pstrings.IfEmpty(o.AllowedHeaders, []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
		ExposedHeaders:   o.ExposedHeaders,
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}
