package httpapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"counselbot.org/internal/obs"
)

// GRPCHealth serves grpc.health.v1.Health backed by the same readiness probe
// as /readyz.
type GRPCHealth struct {
	healthpb.UnimplementedHealthServer

	readiness ReadyChecker
}

// NewGRPCHealth creates the health service.
func NewGRPCHealth(r ReadyChecker) *GRPCHealth {
	if r == nil {
		r = ReadyProbe{}
	}
	return &GRPCHealth{readiness: r}
}

// Register attaches the service to server.
func (s *GRPCHealth) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s)
}

// Check answers SERVING when the probe passes and NOT_SERVING otherwise.
// Unknown service names yield NotFound.
func (s *GRPCHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	switch req.GetService() {
	case "", serviceName:
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		obs.Logger().WithError(err).Warn("grpc health check failed")
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
