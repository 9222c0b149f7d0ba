package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"strings"
	"time"

	"trendsetl/internal/platform/config"
	"trendsetl/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server owns the root chi mux and the listening http.Server
type Server struct {
	addr string
	mux  *chi.Mux
	srv  *stdhttp.Server
}

// NewServer builds a server from cfg: PORT (default ":4000"), READ_HEADER_TIMEOUT,
// WRITE_TIMEOUT and IDLE_TIMEOUT. opts receive the *chi.Mux to mount routes and mw.
func NewServer(cfg config.Conf, opts ...func(*chi.Mux)) *Server {
	m := chi.NewRouter()
	for _, o := range opts {
		o(m)
	}
	s := &Server{addr: normalizeAddr(cfg.MayString("PORT", ":4000")), mux: m}
	s.srv = &stdhttp.Server{
		Addr:              s.addr,
		Handler:           m,
		ReadHeaderTimeout: cfg.MayDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		// runs are synchronous, so writes must outlive the longest run
		WriteTimeout: cfg.MayDuration("WRITE_TIMEOUT", 15*time.Minute),
		IdleTimeout:  cfg.MayDuration("IDLE_TIMEOUT", 2*time.Minute),
	}
	return s
}

// normalizeAddr accepts "4000", ":4000" or "host:4000"
func normalizeAddr(a string) string {
	if a != "" && !strings.Contains(a, ":") {
		return ":" + a
	}
	return a
}

// Router returns a Router facade over the internal chi mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Handler exposes the root handler, mostly for httptest
func (s *Server) Handler() stdhttp.Handler { return s.mux }

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run serves until ctx is cancelled, then shuts down within grace
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	log := logger.Named("http")
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("http listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	log.Info().Dur("grace", grace).Msg("http shutting down")
	return s.srv.Shutdown(sctx)
}
