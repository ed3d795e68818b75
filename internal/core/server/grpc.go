// Package server provides HTTP and gRPC server lifecycle management.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/rulekeeper/internal/core/api"
	"github.com/solatis/rulekeeper/internal/core/config"
)

// shutdownTimeout caps graceful shutdown when the caller's context has no
// deadline of its own.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	config   *config.RuleAPIConfig
	svc      *api.Service
}

// NewGRPCServer creates the gRPC server with interceptors, the rule service
// and the standard health service.
func NewGRPCServer(cfg *config.RuleAPIConfig, svc *api.Service, logger *zap.Logger) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			api.UnaryRequestID(),
			api.UnaryLogging(logger),
			api.UnaryRecovery(logger),
			api.UnaryTimeout(cfg.RequestTimeout),
		),
		grpc.MaxRecvMsgSize(int(cfg.MaxBodyBytes)),
	}
	if cfg.MaxConnections > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConnections)))
	}

	server := grpc.NewServer(opts...)
	api.RegisterRuleServiceServer(server, api.NewGRPCService(svc))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.RuleServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: server,
		health: healthServer,
		config: cfg,
		svc:    svc,
	}, nil
}

// Server exposes the underlying grpc.Server.
func (s *GRPCServer) Server() *grpc.Server {
	return s.server
}

// RefreshHealth marks the rule service NOT_SERVING once the store is
// poisoned.
func (s *GRPCServer) RefreshHealth() {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !s.svc.Healthy() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(api.RuleServiceName, status)
}

// WatchHealth calls RefreshHealth every interval until ctx ends.
func (s *GRPCServer) WatchHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshHealth()
		}
	}
}

// Start binds the listener and serves gRPC requests.
// Serve blocks until Shutdown is called.
func (s *GRPCServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.GRPCAddr())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.GRPCAddr(), err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *GRPCServer) Serve(listener net.Listener) error {
	s.listener = listener
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server, forcing a stop when ctx ends or
// shutdownTimeout elapses.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
