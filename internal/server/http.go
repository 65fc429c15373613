package server

import (
	"context"
	"net"
	"net/http"

	"github.com/dil-najha/Performance-Insights-sub001/internal/api"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
)

// HTTPServer represents the HTTP REST API server
type HTTPServer struct {
	logger *logging.Logger
	server *http.Server
}

// NewHTTPServer wires the REST handler into an http.Server using the
// configured timeouts.
func NewHTTPServer(cfg config.ServerConfig, handler *api.RESTHandler, logger *logging.Logger) *HTTPServer {
	return &HTTPServer{
		logger: logger,
		server: &http.Server{
			Handler:      api.SetupRoutes(handler),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Serve blocks until the listener fails or Stop is called, in which case it
// returns http.ErrServerClosed.
func (s *HTTPServer) Serve(lis net.Listener) error {
	s.logger.Info("Starting HTTP server", "address", lis.Addr().String(), "service", "http")
	return s.server.Serve(lis)
}

// Stop stops the HTTP server gracefully
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
