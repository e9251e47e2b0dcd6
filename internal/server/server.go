// Package server exposes the browsing session over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/rwaexchange/internal/server/handler"
	"github.com/alanyoungcy/rwaexchange/internal/server/middleware"
	"github.com/alanyoungcy/rwaexchange/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Session *handler.SessionHandler
	Assets  *handler.AssetHandler
	Invest  *handler.InvestHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// publicPaths skip API-key authentication.
var publicPaths = []string{"/api/health", "/metrics"}

// NewServer registers every route and wraps the mux in auth, logging and
// CORS middleware. wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewHandler(cfg, handlers, wsHub, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
	}
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/session", handlers.Session.GetSession)
	mux.HandleFunc("POST /api/wallet/connect", handlers.Session.Connect)
	mux.HandleFunc("POST /api/wallet/disconnect", handlers.Session.Disconnect)

	mux.HandleFunc("GET /api/assets", handlers.Assets.ListAssets)
	mux.HandleFunc("GET /api/assets/{id}", handlers.Assets.GetAsset)
	mux.HandleFunc("GET /api/overview", handlers.Assets.Overview)

	mux.HandleFunc("POST /api/invest", handlers.Invest.Invest)
	mux.HandleFunc("GET /api/invest", handlers.Invest.Current)

	mux.Handle("GET /metrics", promhttp.Handler())

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, publicPaths...)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
