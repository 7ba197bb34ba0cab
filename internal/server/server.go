package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/app"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
)

// shutdownGrace bounds how long in-flight requests get once Run's context ends.
const shutdownGrace = 10 * time.Second

// Server serves the portal's pages, JSON API and MCP endpoint.
type Server struct {
	app    *app.App
	router *http.ServeMux
	http   *http.Server
	logger *common.Logger
}

// New builds the server for application. Nothing listens until Run.
func New(application *app.App) *Server {
	s := &Server{
		app:    application,
		logger: application.Logger,
	}
	s.router = s.setupRoutes()

	cfg := application.Config.Server
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:           s.withMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // PDF export waits on the browser
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Run listens on the configured address and serves until ctx is done, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	s.logger.Info().Str("address", ln.Addr().String()).Msg("HTTP server listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.http.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	s.logger.Info().Dur("grace", shutdownGrace).Msg("draining HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
