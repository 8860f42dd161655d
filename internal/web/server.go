// Package web runs the HTTP API server.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/fotofindr/internal/config"
	"github.com/kozaktomas/fotofindr/internal/web/handlers"
)

// Server wraps the HTTP server with its router.
type Server struct {
	cfg      *config.Config
	handlers *handlers.Handlers
	srv      *http.Server
}

// NewServer builds the router and binds all routes.
func NewServer(cfg *config.Config, h *handlers.Handlers, uploadsDir string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	s := &Server{
		cfg:      cfg,
		handlers: h,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.routes(r, uploadsDir)
	return s
}

// Start blocks serving requests until the server is shut down.
func (s *Server) Start() error {
	log.Printf("http server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
