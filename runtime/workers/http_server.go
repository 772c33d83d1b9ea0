package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Drainer releases connections http.Server.Shutdown does not track,
// such as hijacked WebSocket sockets.
type Drainer interface {
	Shutdown(ctx context.Context) error
}

type HTTPServerWorker struct {
	log             *slog.Logger
	address         string
	handler         http.Handler
	shutdownTimeout time.Duration
	drainers        []Drainer
}

func NewHTTPServerWorker(log *slog.Logger, address string, handler http.Handler,
	shutdownTimeout time.Duration, drainers ...Drainer) *HTTPServerWorker {
	return &HTTPServerWorker{
		log:             log,
		address:         address,
		handler:         handler,
		shutdownTimeout: shutdownTimeout,
		drainers:        drainers,
	}
}

// Run serves until ctx is cancelled, then drains live connections within
// shutdownTimeout.
func (w *HTTPServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	server := &http.Server{
		Handler:           w.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", w.address, "at", time.Now().UTC())
		errChan <- server.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	for _, drainer := range w.drainers {
		if err := drainer.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("Connections not drained in time", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	w.log.Info("HTTP server stopped")
	return nil
}
