package grpcx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewHealthServer returns a gRPC server with the standard health service registered.
// The overall status ("") starts as SERVING; flip it with SetServingStatus.
func NewHealthServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryServerRequestIDInterceptor()),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// HealthReadyCheck probes service over the standard gRPC health protocol.
// The connection is dialed lazily on the first check and reused afterwards.
func HealthReadyCheck(addr, service string) func(context.Context) error {
	var (
		mu   sync.Mutex
		conn *grpc.ClientConn
	)
	return func(ctx context.Context) error {
		mu.Lock()
		if conn == nil {
			c, err := Dial(ctx, addr, DialOptions{Timeout: 2 * time.Second})
			if err != nil {
				mu.Unlock()
				return err
			}
			conn = c
		}
		cc := conn
		mu.Unlock()

		resp, err := healthpb.NewHealthClient(cc).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return err
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("grpc health status %s", resp.GetStatus())
		}
		return nil
	}
}
