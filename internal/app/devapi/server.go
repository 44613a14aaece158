// Package devapi runs the inventory API over HTTP, in memory or on
// PostgreSQL, so the client can be tried without the real collaborator
// service.
package devapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi/inventoryapitest"
	"github.com/heartmarshall/stockroom/internal/config"
	"github.com/heartmarshall/stockroom/internal/transport/middleware"
	"github.com/heartmarshall/stockroom/internal/transport/rest"
)

// Server serves the inventory routes and health probes.
type Server struct {
	cfg     config.DevAPIConfig
	log     *slog.Logger
	handler http.Handler
}

// New creates a server over backend.
func New(cfg config.DevAPIConfig, backend inventoryapitest.Backend, logger *slog.Logger, version string) *Server {
	log := logger.With("component", "devapi")

	mux := http.NewServeMux()
	rest.NewHealthHandler(backend, log, version).Register(mux)
	mux.Handle(inventoryapitest.Prefix+"/", inventoryapitest.NewAPI(backend))

	handler := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recovery(log),
	)(mux)

	return &Server{cfg: cfg, log: log, handler: handler}
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on cfg.Addr() and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("devapi: listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("dev api listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("devapi: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("devapi: shutdown: %w", err)
		}
		s.log.Info("dev api stopped")
		return nil
	})
	return g.Wait()
}
