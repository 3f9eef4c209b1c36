package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/madison-studio/madison-connect/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Metrics instruments requests and serves the metrics endpoint.
type Metrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	authService       driving.AuthService
	connectionService driving.ConnectionService

	// Infrastructure
	metrics     Metrics // optional
	db          Pinger  // PostgreSQL health check (optional)
	redisClient Pinger  // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// CORSAllowedOrigins are the browser origins allowed to call the API.
	CORSAllowedOrigins []string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	connectionService driving.ConnectionService,
	metrics Metrics, // can be nil
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		logger:            logger,
		authService:       authService,
		connectionService: connectionService,
		metrics:           metrics,
		db:                db,
		redisClient:       redisClient,
	}

	s.setupRoutes()

	var h http.Handler = s.router
	h = NewCORSMiddleware(cfg.CORSAllowedOrigins).Handler(h)
	if metrics != nil {
		h = metrics.Middleware(h)
	}
	h = NewLoggingMiddleware(logger).Handler(h)
	h = NewRecoveryMiddleware().Handler(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}

	// Connect flow. Role checks are per organization and happen in the service.
	s.router.Handle("POST /api/v1/oauth/{provider}/start",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleStartConnect)))
	// Callback is public - receives redirects from OAuth providers
	s.router.HandleFunc("GET /api/v1/oauth/{provider}/callback", s.handleCallback)
	s.router.Handle("POST /api/v1/oauth/{provider}/disconnect",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDisconnect)))
	s.router.Handle("POST /api/v1/oauth/{provider}/refresh",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRefreshConnection)))

	// Connection listing
	s.router.Handle("GET /api/v1/organizations/{organizationId}/connections",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListConnections)))
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
