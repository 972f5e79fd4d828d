package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/observability"
	"github.com/kbukum/whisperbatch/server/endpoint"
	"github.com/kbukum/whisperbatch/server/middleware"
)

// Server is an HTTP server backed by Gin, served over HTTP/1.1 and h2c.
// Net/http middleware registered with Use wraps the whole engine; closers
// registered with AddCloser are released when the server stops.
type Server struct {
	httpServer  *http.Server
	engine      *gin.Engine
	config      Config
	log         *logger.Logger
	middlewares []middleware.Middleware

	mu       sync.Mutex
	listener net.Listener
	closers  []io.Closer
}

// New creates a new Server. No middleware is applied yet; call
// ApplyMiddleware and RegisterDefaultEndpoints or wire routes by hand.
func New(cfg Config, log *logger.Logger) *Server {
	if log.DebugEnabled() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log = log.WithComponent("server")

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Ignoring invalid trusted proxies", logger.Fields(logger.FieldError, err.Error()))
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log,
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Use appends net/http middleware that wraps the whole engine. It must be
// called before Start or Handler.
func (s *Server) Use(mw ...middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw...)
}

// AddCloser registers a resource owned by the server's routes, such as a
// rate limiter, to be closed after the server has shut down.
func (s *Server) AddCloser(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, c)
}

// Handler returns the fully wrapped root handler: the middleware chain
// around Gin, with h2c upgrade support.
func (s *Server) Handler() http.Handler {
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          s.config.IdleTimeout,
	}
	return h2c.NewHandler(middleware.Chain(s.middlewares...)(s.engine), h2s)
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer.Handler = s.Handler()
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server within the configured shutdown
// timeout, then closes every registered closer.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.listener = nil
	s.mu.Unlock()

	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ApplyMiddleware installs the standard stack. Around the whole engine:
// recovery, request id, body size limit and request logging. On the Gin
// engine: CORS and, when metrics is not nil, request metrics.
func (s *Server) ApplyMiddleware(metrics *observability.Metrics) {
	s.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RequestLogger(s.log),
	)
	s.engine.Use(middleware.CORS(s.config.CORS))
	if metrics != nil {
		s.engine.Use(middleware.Metrics(metrics))
	}
}

// RegisterDefaultEndpoints registers the operational endpoints and the JSON
// fallbacks for unknown routes and methods.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker, info endpoint.InfoFunc) {
	endpoint.New(serviceName, checker, info).Register(s.engine)
	s.engine.NoRoute(NotFound)
	s.engine.NoMethod(MethodNotAllowed)
}
