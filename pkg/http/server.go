package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"Symbiotic/pkg/http/middleware"
	"Symbiotic/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler registers its routes on the server's echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORS            bool
	CORSOrigins     []string
	SlowRequest     time.Duration
	BodyLimit       int64
	Logger          *logger.Logger
	// HealthCheck backs GET /healthz; nil means always healthy.
	HealthCheck  func(ctx context.Context) error
	HealthBudget time.Duration
}

func WithHost(host string) ServerOption {
	return func(c *ServerConfig) { c.Host = host }
}

// WithPort sets the listen port; 0 picks a free one (see Addr).
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) { c.Port = port }
}

func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		if shutdown > 0 {
			c.ShutdownTimeout = shutdown
		}
	}
}

// WithCORS toggles CORS. No origins means any origin.
func WithCORS(enabled bool, origins ...string) ServerOption {
	return func(c *ServerConfig) {
		c.CORS = enabled
		c.CORSOrigins = origins
	}
}

func WithLogger(l *logger.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}

// WithHealthCheck sets the probe behind /healthz and how long it may take.
func WithHealthCheck(fn func(ctx context.Context) error, budget time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.HealthCheck = fn
		if budget > 0 {
			c.HealthBudget = budget
		}
	}
}

// WithSlowRequest sets the latency above which requests are logged as slow.
func WithSlowRequest(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.SlowRequest = d }
}

// WithBodyLimit caps request bodies in bytes; 0 disables the cap.
func WithBodyLimit(limit int64) ServerOption {
	return func(c *ServerConfig) { c.BodyLimit = limit }
}

// Server is the echo instance plus its listener lifecycle.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
}

func NewServer(handler Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORS:            true,
		SlowRequest:     2 * time.Second,
		BodyLimit:       64 << 10,
		HealthBudget:    3 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(cfg.Logger))
	e.Use(middleware.RequestLogging(cfg.Logger))
	e.Use(middleware.Metrics(cfg.Logger, cfg.SlowRequest))
	if cfg.BodyLimit > 0 {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if cfg.CORS {
		e.Use(middleware.CORS(middleware.CORSConfig{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
			ExposeHeaders: []string{echo.HeaderXRequestID},
			MaxAge:        10 * time.Minute,
		}))
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", healthz(cfg.HealthCheck, cfg.HealthBudget))

	return &Server{echo: e, config: cfg}
}

// Start binds the listener and serves in the background. Bind failures are returned.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.echo.Listener = ln

	s.config.Logger.Info("http server listening", logger.String("addr", ln.Addr().String()))
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Error("http server error", logger.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address, or "" before Start.
func (s *Server) Addr() string {
	if a := s.echo.ListenerAddr(); a != nil {
		return a.String()
	}
	return ""
}

// Stop drains in-flight requests for at most the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.config.Logger.Info("http server stopped")
	return nil
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func healthz(check func(ctx context.Context) error, budget time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check == nil {
			return SuccessResponse(c, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), budget)
		defer cancel()
		if err := check(ctx); err != nil {
			// real 503 so load balancers take the instance out
			return c.JSON(http.StatusServiceUnavailable, APIResponse{
				Status:  http.StatusServiceUnavailable,
				Message: http.StatusText(http.StatusServiceUnavailable),
				Data:    err.Error(),
			})
		}
		return SuccessResponse(c, "ok")
	}
}
