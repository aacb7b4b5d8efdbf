package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/arbiter/pkg/api/handlers"
	"mercator-hq/arbiter/pkg/api/middleware"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/security/auth"
	"mercator-hq/arbiter/pkg/telemetry/health"
	"mercator-hq/arbiter/pkg/telemetry/metrics"
	"mercator-hq/arbiter/pkg/telemetry/tracing"

	"github.com/go-chi/chi/v5"
)

// BuildInfo is reported by the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options are the components a server serves. Auth is required when
// server.auth is enabled; TLS, when set, is applied to the listener.
type Options struct {
	API     *handlers.Handler
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Auth    *auth.Validator
	TLS     *tls.Config
	Build   BuildInfo
	Logger  *slog.Logger
}

// Server is the HTTP server of an Arbiter node.
type Server struct {
	config    config.ServerConfig
	telemetry config.TelemetryConfig
	opts      Options
	logger    *slog.Logger

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool
}

// New creates a server.
func New(cfg config.ServerConfig, telemetry config.TelemetryConfig, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    cfg,
		telemetry: telemetry,
		opts:      opts,
		logger:    logger.With("component", "server"),
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	if s.opts.TLS != nil {
		ln = tls.NewListener(ln, s.opts.TLS)
	}
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.listener = ln
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "address", ln.Addr().String(), "tls", s.opts.TLS != nil)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

	shutdownCtx := ctx
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	var shutdownErr error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
	}
	s.isRunning = false
	s.logger.Info("API server stopped")
	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Use(
		middleware.Recovery(s.logger),
		middleware.RequestID,
		tracing.HTTPMiddleware(s.opts.Tracer),
		middleware.Logging(s.logger, s.opts.Metrics),
		middleware.CORS(s.config.CORS),
	)

	s.mountOperational(r)

	if s.opts.API != nil {
		r.Group(func(r chi.Router) {
			if s.config.Auth.Enabled && s.opts.Auth != nil {
				r.Use(auth.Middleware(s.opts.Auth, s.config.Auth.Header, s.logger))
			}
			r.Use(
				middleware.BodyLimit(s.config.MaxBodyBytes),
				middleware.Timeout(s.config.RequestTimeout),
			)
			s.opts.API.Routes(r)
		})
	}
	return r
}

func (s *Server) mountOperational(r chi.Router) {
	hc := s.telemetry.Health
	if hc.Enabled && s.opts.Health != nil {
		r.Get(hc.LivenessPath, s.opts.Health.LivenessHandler())
		r.Get(hc.ReadinessPath, s.opts.Health.ReadinessHandler())
		b := s.opts.Build
		r.Get(hc.VersionPath, health.VersionHandler(b.Version, b.Commit, b.BuildTime))
	}

	mc := s.telemetry.Metrics
	if mc.Enabled && s.opts.Metrics != nil {
		r.Method(http.MethodGet, mc.Path, s.opts.Metrics.Handler())
	}
}
