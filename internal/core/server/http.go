package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/solatis/rulekeeper/internal/core/api"
	"github.com/solatis/rulekeeper/internal/core/config"
)

// HTTPServer manages the REST server lifecycle.
type HTTPServer struct {
	server *http.Server
	config *config.RuleAPIConfig
}

// NewHTTPServer builds the gin router for svc. metricsHandler may be nil.
func NewHTTPServer(cfg *config.RuleAPIConfig, svc *api.Service, logger *zap.Logger, metricsHandler http.Handler) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(svc, logger, metricsHandler)

	return &HTTPServer{
		server: &http.Server{
			Addr:              cfg.HTTPAddr(),
			Handler:           router,
			ReadHeaderTimeout: cfg.RequestTimeout,
		},
		config: cfg,
	}, nil
}

// Handler returns the router, for tests that drive it with httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves until Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener, capping concurrent connections at
// max_connections. A clean shutdown returns nil.
func (s *HTTPServer) Serve(listener net.Listener) error {
	if s.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.config.MaxConnections)
	}
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx ends.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
