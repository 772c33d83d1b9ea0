package workers

import (
	"chat-presence/sink"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func freeAddress(t *testing.T) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())
	return address
}

type countingDrainer struct {
	calls atomic.Int32
}

func (d *countingDrainer) Shutdown(context.Context) error {
	d.calls.Add(1)
	return nil
}

func TestHTTPServerWorker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	address := freeAddress(t)
	drainer := &countingDrainer{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	worker := NewHTTPServerWorker(log, address, handler, time.Second, drainer)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- worker.Run(ctx) }()

	// Given a running server
	var body []byte
	req.Eventually(func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/", address))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return true
	}, 2*time.Second, 20*time.Millisecond)
	req.Equal("pong", string(body))

	// When the context is cancelled
	cancel()

	// Then the server drains and stops cleanly
	select {
	case err := <-errChan:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP server should have stopped")
	}
	req.Equal(int32(1), drainer.calls.Load())
}

func TestHTTPServerWorker_ListenFailure(t *testing.T) {
	req := require.New(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer listener.Close()

	worker := NewHTTPServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), listener.Addr().String(), http.NotFoundHandler(), time.Second)

	req.Error(worker.Run(context.Background()))
}

func TestHealthServerWorker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	address := freeAddress(t)
	worker := NewHealthServerWorker(log, address)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- worker.Run(ctx) }()

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	// Then the gateway reports SERVING
	req.Eventually(func() bool {
		checkCtx, checkCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer checkCancel()
		resp, err := client.Check(checkCtx, &grpc_health_v1.HealthCheckRequest{Service: GatewayServiceName})
		return err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errChan:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("health server should have stopped")
	}
}

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func TestPresenceReporter_Collect(t *testing.T) {
	req := require.New(t)
	stats := &sink.DeliveryStats{}
	stats.Enqueued.Add(7)
	stats.Dropped.Add(2)
	stats.Discarded.Add(4)
	reporter := NewPresenceReporter(logs.GetLoggerFromLevel(slog.LevelDebug), fixedCounter(3), stats, time.Second)

	t.Run("without process metrics", func(t *testing.T) {
		got := reporter.Collect(nil)

		req.Equal(PresenceStats{Connections: 3, Enqueued: 7, Dropped: 2, Discarded: 4}, got)
	})

	t.Run("with the current process", func(t *testing.T) {
		p, err := process.NewProcess(int32(os.Getpid()))
		req.NoError(err)

		got := reporter.Collect(p)

		req.Equal(3, got.Connections)
		req.Positive(got.RSSBytes)
	})
}

func TestPresenceReporter_StopsWithContext(t *testing.T) {
	req := require.New(t)
	reporter := NewPresenceReporter(logs.GetLoggerFromLevel(slog.LevelDebug), fixedCounter(0), &sink.DeliveryStats{}, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req.NoError(reporter.Run(ctx))
}
