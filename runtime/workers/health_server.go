package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// GatewayServiceName is the health service name probed by orchestrators.
const GatewayServiceName = "chat-presence.Gateway"

// HealthServerWorker exposes grpc.health.v1 on its own port.
// Both the overall status and GatewayServiceName report SERVING while the
// worker runs and NOT_SERVING once it is shutting down.
type HealthServerWorker struct {
	log     *slog.Logger
	address string
	health  *health.Server
}

func NewHealthServerWorker(log *slog.Logger, address string) *HealthServerWorker {
	return &HealthServerWorker{
		log:     log,
		address: address,
		health:  health.NewServer(),
	}
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(w.log)))
	grpc_health_v1.RegisterHealthServer(s, w.health)
	w.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	w.health.SetServingStatus(GatewayServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", w.address, "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			w.log.Debug("📡 gRPC exposed services", "name", serviceName)
		}
		errChan <- s.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC health server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// NOT_SERVING first so probes stop routing traffic before the socket goes away.
	w.health.Shutdown()
	s.GracefulStop()
	w.log.Info("gRPC health server stopped")
	return nil
}
