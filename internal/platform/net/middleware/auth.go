package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perr "trendsetl/internal/platform/errors"
	pnet "trendsetl/internal/platform/net"
	phttp "trendsetl/internal/platform/net/http"
)

// Bearer guards routes with a static shared token, answering 401 in the API envelope.
// An empty token disables the check; the caller label is stored on context either way.
func Bearer(token, caller string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got, ok := bearerToken(r)
				if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
					w.Header().Set("WWW-Authenticate", `Bearer realm="trendsetl"`)
					phttp.RespondError(w, r, perr.Unauthorizedf("missing or invalid bearer token"))
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
