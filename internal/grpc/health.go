// Package grpc serves the standard gRPC health protocol for the service.
package grpc

import (
	"context"
	"net"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"channel-service/internal/observability"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "channel-service"

// DefaultCheckInterval is used when Watch is given no interval.
const DefaultCheckInterval = 10 * time.Second

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// HealthServer wraps a grpc.Server exposing grpc.health.v1.
type HealthServer struct {
	server *grpclib.Server
	health *health.Server
}

// NewHealthServer builds the server with metrics and tracing interceptors.
func NewHealthServer() *HealthServer {
	srv := grpclib.NewServer(
		grpclib.StatsHandler(otelgrpc.NewServerHandler()),
		grpclib.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{server: srv, health: hs}
}

// SetServing flips both the overall and the named service status.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Watch runs check every interval and updates the status until ctx ends.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration, check CheckFunc) {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	refresh := func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := check(cctx)
		if err != nil {
			jww.WARN.Printf("health check failed: %v", err)
		}
		s.SetServing(err == nil)
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// Serve blocks serving on lis.
func (s *HealthServer) Serve(lis net.Listener) error {
	jww.INFO.Printf("grpc health listening on %s", lis.Addr())
	return s.server.Serve(lis)
}

// Stop marks the service down and drains in-flight calls.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
