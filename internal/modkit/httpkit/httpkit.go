// Package httpkit is the route registration surface modules use instead of
// importing the platform http package directly
package httpkit

import (
	"net/http"

	phttp "trendsetl/internal/platform/net/http"
	"trendsetl/internal/platform/net/http/bind"
)

type (
	// Router is the platform router seam
	Router = phttp.Router
	// Response lets a handler pick its own status, headers, or an unenveloped body
	Response = phttp.Response
	// JSONOptions tunes request body parsing
	JSONOptions = bind.JSONOptions
)

// OptionalBody accepts an empty body as the zero value, which is still validated
var OptionalBody = JSONOptions{MaxBytes: 64 << 10, DisallowUnknown: true, AllowEmptyBody: true}

// Raw returns a response written as-is, without the data envelope
func Raw(status int, body any) Response { return phttp.Raw(status, body) }

// Get registers h under GET; its result is enveloped, its error mapped to a status
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.JSONHandlerNoBody(h))
}

// PostJSON registers h under POST with the body decoded and validated into T
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error), opts ...JSONOptions) {
	r.Post(path, phttp.JSONHandler(h, opts...))
}
