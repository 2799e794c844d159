// Package api provides the introspection HTTP server: health, concept
// stats, queries, document ingestion, and a websocket stream of lifecycle
// events. The knowledge core stays purely programmatic; this server is a
// collaborator on top of its public operations.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindmesh/mindmesh/config"
	"github.com/mindmesh/mindmesh/pkg/logger"
)

// Server defines the interface for HTTP server lifecycle management.
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// HTTPServer implements the Server interface.
type HTTPServer struct {
	config *config.ServerConfig
	server *http.Server
	router chi.Router
	logger logger.Logger
}

// NewHTTPServer creates a new introspection server.
func NewHTTPServer(cfg *config.ServerConfig, log logger.Logger, h *Handlers) *HTTPServer {
	router := NewRouter(log, h)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &HTTPServer{
		config: cfg,
		server: srv,
		router: router,
		logger: log,
	}
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting introspection server", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("introspection server failed", "error", err)
		return fmt.Errorf("start introspection server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down introspection server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown introspection server: %w", err)
	}
	return nil
}
