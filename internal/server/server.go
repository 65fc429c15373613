// Package server assembles the comparison service: history, result cache,
// analyzer, monitoring and tracing behind the HTTP and gRPC listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/api"
	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/monitoring"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
	"github.com/dil-najha/Performance-Insights-sub001/internal/tracing"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	config     *config.Config
	logger     *logging.Logger
	tracing    *tracing.TracingService
	history    storage.HistoryStore
	cache      cache.Cache
	monitoring *monitoring.MonitoringService
	analyzer   *analysis.Analyzer
	httpServer *HTTPServer
	grpcServer *GRPCServer // nil when grpc_port is 0
	startTime  time.Time

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer opens every backing component. On error, whatever was opened is
// closed again.
func NewServer(ctx context.Context, cfg *config.Config, version string) (_ *Server, err error) {
	logger := logging.NewLogger(&cfg.Logging)
	logger.Info("Initializing server", "version", version)

	s := &Server{config: cfg, logger: logger, startTime: time.Now()}
	defer func() {
		if err != nil {
			s.closeBackends(context.Background())
		}
	}()

	if cfg.Tracing.ServiceVersion == "" {
		cfg.Tracing.ServiceVersion = version
	}
	if s.tracing, err = tracing.NewTracingService(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if s.history, err = storage.Open(cfg.History, logger); err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	if s.cache, err = cache.New(ctx, cfg.Cache); err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	s.monitoring = monitoring.NewMonitoringService(version, s.history, s.cache)
	s.analyzer = analysis.New(analysis.Options{
		Config:   cfg.Analysis,
		Cache:    s.cache,
		CacheTTL: cfg.Cache.TTL,
		History:  s.history,
		Logger:   logger,
		Metrics:  s.monitoring.Metrics,
		Tracing:  s.tracing,
	})

	handlerOpts := api.Options{
		Analyzer:       s.analyzer,
		Logger:         logger,
		Tracing:        s.tracing,
		MaxBodySize:    cfg.Server.MaxBodySize,
		RequestTimeout: cfg.Server.WriteTimeout,
		MetricsPath:    cfg.Metrics.Path,
		Version:        version,
	}
	if cfg.Metrics.Enabled {
		handlerOpts.Monitoring = s.monitoring
	}
	s.httpServer = NewHTTPServer(cfg.Server, api.NewRESTHandler(handlerOpts), logger)

	if cfg.Server.GRPCPort > 0 {
		s.grpcServer = NewGRPCServer(s.analyzer, logger, s.tracing)
	}

	return s, nil
}

func (s *Server) Analyzer() *analysis.Analyzer { return s.analyzer }

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler() }

func (s *Server) Uptime() time.Duration { return time.Since(s.startTime) }

// Run listens on the configured ports and serves until ctx is cancelled or
// a listener fails.
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		s.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}

	var grpcLis net.Listener
	if s.grpcServer != nil {
		addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.GRPCPort))
		if grpcLis, err = net.Listen("tcp", addr); err != nil {
			httpLis.Close()
			s.Shutdown(context.Background())
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve runs the servers on the given listeners. grpcLis may be nil.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if grpcLis != nil && s.grpcServer != nil {
		g.Go(func() error {
			if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC server failed: %w", err)
			}
			return nil
		})
	}

	if lru, ok := s.cache.(*cache.LRUCache); ok && s.config.Cache.CleanupInterval > 0 {
		g.Go(func() error {
			lru.RunCleanup(gctx, s.config.Cache.CleanupInterval, func(removed int) {
				s.logger.Debug("Expired cache entries removed", "count", removed)
			})
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})

	s.logger.Info("Server started successfully",
		"http_address", httpLis.Addr().String(),
		"grpc_enabled", s.grpcServer != nil,
		"history_enabled", s.history != nil,
		"cache_enabled", s.cache != nil,
	)

	err := g.Wait()
	s.logger.Info("Server stopped", "uptime", s.Uptime().String())
	return err
}

// Shutdown stops both servers and closes the backends. It is safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		var errs []error
		if s.grpcServer != nil {
			s.grpcServer.Stop()
		}
		if err := s.httpServer.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop HTTP server: %w", err))
		}
		if err := s.closeBackends(shutdownCtx); err != nil {
			errs = append(errs, err)
		}

		s.shutdownErr = errors.Join(errs...)
		if s.shutdownErr != nil {
			s.logger.Error("Error during shutdown", "error", s.shutdownErr.Error())
			return
		}
		s.logger.Info("Server shutdown completed")
	})
	return s.shutdownErr
}

func (s *Server) closeBackends(ctx context.Context) error {
	var errs []error
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history store: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close result cache: %w", err))
		}
	}
	if s.tracing != nil {
		if err := s.tracing.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
