package middleware

import (
	"net/http"
	"runtime/debug"

	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/logger"
	pnet "trendsetl/internal/platform/net"
	phttp "trendsetl/internal/platform/net/http"
)

// RecoverJSON answers a panicking handler with a panic-coded 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			switch v := recover(); v {
			case nil:
			case http.ErrAbortHandler:
				panic(v)
			default:
				onPanic(w, r, v)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func onPanic(w http.ResponseWriter, r *http.Request, v any) {
	id := pnet.RequestID(r.Context())
	logger.C(r.Context()).Error().
		Str("request_id", id).
		Interface("panic", v).
		Bytes("stack", debug.Stack()).
		Msg("handler panicked")
	if id != "" {
		w.Header().Set("X-Request-ID", id)
	}
	phttp.RespondError(w, r, perr.PanicErrf("internal error"))
}
