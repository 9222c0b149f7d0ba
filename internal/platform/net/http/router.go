package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler is the function shape every route registers
type Handler = func(http.ResponseWriter, *http.Request)

// Router is what modules mount against; only the verbs the API uses are exposed
type Router interface {
	Get(path string, h Handler)
	Post(path string, h Handler)
	Handle(path string, h http.Handler)

	Use(mw ...func(http.Handler) http.Handler)
	Group(fn func(Router))
	Route(pattern string, fn func(Router))

	Mux() http.Handler
}

// AdaptChi exposes m as a Router
func AdaptChi(m *chi.Mux) Router { return chiRouter{m} }

type chiRouter struct{ chi.Router }

func (c chiRouter) Get(p string, h Handler)  { c.Method(http.MethodGet, p, http.HandlerFunc(h)) }
func (c chiRouter) Post(p string, h Handler) { c.Method(http.MethodPost, p, http.HandlerFunc(h)) }

func (c chiRouter) Group(fn func(Router)) {
	c.Router.Group(func(sub chi.Router) { fn(chiRouter{sub}) })
}

func (c chiRouter) Route(pattern string, fn func(Router)) {
	c.Router.Route(pattern, func(sub chi.Router) { fn(chiRouter{sub}) })
}

func (c chiRouter) Mux() http.Handler { return c.Router }
