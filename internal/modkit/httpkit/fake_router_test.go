package httpkit

import (
	"net/http"

	phttp "trendsetl/internal/platform/net/http"
)

// fakeRouter records registrations so tests can call handlers directly
type fakeRouter struct {
	prefixes []string
	groups   int
	mw       int
	gets     map[string]phttp.Handler
	posts    map[string]phttp.Handler
	handles  map[string]http.Handler
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		gets:    map[string]phttp.Handler{},
		posts:   map[string]phttp.Handler{},
		handles: map[string]http.Handler{},
	}
}

func (f *fakeRouter) Get(path string, h phttp.Handler)          { f.gets[path] = h }
func (f *fakeRouter) Post(path string, h phttp.Handler)         { f.posts[path] = h }
func (f *fakeRouter) Handle(path string, h http.Handler)        { f.handles[path] = h }
func (f *fakeRouter) Use(mw ...func(http.Handler) http.Handler) { f.mw += len(mw) }
func (f *fakeRouter) Mux() http.Handler                         { return http.NewServeMux() }

func (f *fakeRouter) Group(fn func(Router)) {
	f.groups++
	fn(f)
}

func (f *fakeRouter) Route(prefix string, fn func(Router)) {
	f.prefixes = append(f.prefixes, prefix)
	fn(f)
}
