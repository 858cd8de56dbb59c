// Copyright 2025 Joseph Cumines
//
// gRPC health-check endpoint

package transport

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service name reported alongside the overall ("")
// status.
const HealthServiceName = "thea.agent.v1.Agent"

// HealthServer exposes the standard grpc.health.v1 service so supervisors can
// probe the agent without touching its HTTP route table.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

// NewHealthServer creates a health server reporting NOT_SERVING until
// SetServing(true) is called.
func NewHealthServer() *HealthServer {
	h := &HealthServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.SetServing(false)
	return h
}

// SetServing updates the status of both the overall and the agent service.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthServiceName, status)
}

// Serve accepts connections on lis until Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	if err := h.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// ListenAndServe binds addr and serves on it.
func (h *HealthServer) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return h.Serve(lis)
}

// Stop marks the agent as not serving and stops the gRPC server.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
