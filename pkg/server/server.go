package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/atrium/pkg/config"
	"mercator-hq/atrium/pkg/export"
	"mercator-hq/atrium/pkg/limits"
	"mercator-hq/atrium/pkg/notify"
	"mercator-hq/atrium/pkg/resource"
	"mercator-hq/atrium/pkg/storage"
	"mercator-hq/atrium/pkg/telemetry/health"
	"mercator-hq/atrium/pkg/telemetry/metrics"
)

// Deps are the components the HTTP surface is built from.
type Deps struct {
	// Config supplies export defaults and telemetry paths.
	Config *config.Config

	// Registry resolves resources by URI key.
	Registry *resource.Registry

	// Storage holds the export disks.
	Storage *storage.Local

	// Processor runs synchronous exports.
	Processor *export.Processor

	// Dispatcher queues background exports. Without one every export
	// runs synchronously.
	Dispatcher export.Dispatcher

	// Inbox serves the notifications endpoint. Optional.
	Inbox *notify.Inbox

	// Metrics records HTTP metrics and serves the scrape endpoint.
	// Optional.
	Metrics *metrics.Collector

	// Health serves the probe endpoints. Optional.
	Health *health.Checker

	// Build is reported by the version endpoint.
	Build health.VersionInfo
}

// Server is the atrium HTTP server.
type Server struct {
	config       *config.ServerConfig
	deps         Deps
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	logger       *slog.Logger
	exports      *limits.ConcurrentLimiter
}

// New creates a server. A nil deps.Config uses the defaults.
func New(cfg *config.ServerConfig, deps Deps) *Server {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if cfg == nil {
		cfg = &deps.Config.Server
	}
	return &Server{
		config:  cfg,
		deps:    deps,
		logger:  slog.Default().With("component", "server"),
		exports: limits.NewConcurrentLimiter(cfg.MaxConcurrentExports),
	}
}

// Start listens on the configured address and blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln and blocks until ctx is cancelled or serving fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "address", ln.Addr().String())

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.setStopped()
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server within the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()
		if httpServer == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.setStopped()
		s.logger.Info("http server stopped")
	})

	return shutdownErr
}

func (s *Server) setStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.middleware(s.routes())
}
