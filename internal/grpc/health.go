package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name clubhub reports under in grpc.health.v1 alongside the overall "" entry.
const ServiceName = "clubhub.api"

// Health tracks whether the API can reach its database. It starts NOT_SERVING until the first
// successful probe.
type Health struct {
	server *health.Server
}

func NewHealth() *Health {
	h := &Health{server: health.NewServer()}
	h.SetServing(false)
	return h
}

func (h *Health) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

// Shutdown flips every service to NOT_SERVING so balancers drain before GracefulStop.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}

// NewServer builds the gRPC server exposing the health service. When serviceToken is set every
// call must carry it in the x-service-token metadata.
func NewServer(serviceToken string, h *Health) (*grpc.Server, error) {
	var opts []grpc.ServerOption
	if serviceToken != "" {
		auth, err := newServiceAuth(serviceToken)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.UnaryInterceptor(auth.unary), grpc.StreamInterceptor(auth.stream))
	}
	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, h.server)
	return server, nil
}
