package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/visadesk/libs/grpcx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// startGrpcServer serves the standard health service. It reports NOT_SERVING as soon
// as ctx is done so the gateway stops routing before the HTTP server drains.
func startGrpcServer(ctx context.Context, logger *slog.Logger, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, health := grpcx.NewHealthServer()

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		srv.GracefulStop()
	}()

	return nil
}
