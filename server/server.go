package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/runkit/chain"
	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/observability"
	"github.com/kbukum/runkit/server/middleware"
)

// Server exposes a chain catalog over HTTP. Gin handles routing; the
// middleware stack and h2c wrap the whole mux.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	handler    http.Handler
	config     Config
	catalog    *chain.Catalog
	log        *logger.Logger

	service          string
	metrics          http.Handler
	checkers         []observability.HealthChecker
	batchConcurrency int
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheckers adds components to the /health report.
func WithHealthCheckers(checkers ...observability.HealthChecker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, checkers...) }
}

// WithServiceName sets the service name reported by /health.
func WithServiceName(name string) Option {
	return func(s *Server) { s.service = name }
}

// WithBatchConcurrency sets the batch concurrency used when a request
// does not ask for one.
func WithBatchConcurrency(n int) Option {
	return func(s *Server) { s.batchConcurrency = n }
}

// New creates a Server with its routes registered. Call ApplyDefaults on
// cfg first.
func New(cfg Config, catalog *chain.Catalog, log *logger.Logger, opts ...Option) *Server {
	switch {
	case gin.Mode() == gin.TestMode:
	case zerolog.GlobalLevel() <= zerolog.DebugLevel:
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:           gin.New(),
		mux:              http.NewServeMux(),
		config:           cfg,
		catalog:          catalog,
		log:              log.WithComponent("server"),
		service:          "runkit",
		batchConcurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	s.mux.Handle("/", s.engine)
	s.handler = middleware.Chain(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Tracing(nil, nil),
		middleware.RequestLogger(s.log),
		middleware.BodySizeLimit(cfg.BodyLimit()),
	)(s.mux)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          seconds(cfg.IdleTimeout),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h2c.NewHandler(s.handler, h2s),
		ReadTimeout:  seconds(cfg.ReadTimeout),
		WriteTimeout: seconds(cfg.WriteTimeout),
		IdleTimeout:  seconds(cfg.IdleTimeout),
	}
	return s
}

// Handler returns the full handler stack without h2c, for tests and for
// embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	tlsConfig, err := s.config.TLS.Build()
	if err != nil {
		return fmt.Errorf("server tls: %w", err)
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.httpServer.Addr = listener.Addr().String()
	s.httpServer.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }

	serve := func() error { return s.httpServer.Serve(listener) }
	if tlsConfig != nil {
		// ServeTLS negotiates HTTP/2 itself; h2c only applies to cleartext.
		s.httpServer.Handler = s.handler
		s.httpServer.TLSConfig = tlsConfig
		serve = func() error { return s.httpServer.ServeTLS(listener, "", "") }
	}

	go func() {
		if err := serve(); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": s.httpServer.Addr,
		"tls":  tlsConfig != nil,
	})
	return nil
}

// Stop gracefully shuts down the server within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	timeout := seconds(s.config.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
