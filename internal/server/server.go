// Package server exposes the storage engine over HTTP: entry listing
// and stat, change planning, and batch execution. Every response body
// is the canonical result envelope, so clients see the same status
// taxonomy as CLI consumers.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/omnistor/omnistor/internal/config"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

// Server serves the HTTP API for one provider.
type Server struct {
	cfg     config.ServerConfig
	p       provider.Provider
	logger  *zap.Logger
	version string
	opts    transfer.Options

	router chi.Router
	http   *http.Server
}

// New builds a server around the provider. A nil logger disables
// logging.
func New(cfg config.ServerConfig, p provider.Provider, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		p:       p,
		logger:  logger,
		version: version,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// WithTransferOptions sets matcher/rate-limit options for apply
// operations. Returns the server for chaining.
func (s *Server) WithTransferOptions(opts transfer.Options) *Server {
	s.opts = opts
	return s
}

// Handler returns the HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Port returns the configured listen port.
func (s *Server) Port() int { return s.cfg.Port }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, provider.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Get("/capabilities", s.handleCapabilities)
		r.Get("/entries", s.handleList)
		r.Get("/entries/stat", s.handleStat)
		r.Post("/plan", s.handlePlan)
		r.Post("/apply", s.handleApply)
	})

	return r
}

// Start runs the listener until ctx is cancelled, then drains with the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	return s.http.Shutdown(shutdownCtx)
}
