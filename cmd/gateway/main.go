package main

import (
	"chat-presence/auth"
	"chat-presence/gateway"
	"chat-presence/httpapi"
	"chat-presence/internal"
	"chat-presence/moderation"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"chat-presence/sink"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/shirou/gopsutil/process"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal is received.
// Returning instead of exiting lets the deferred cleanups run.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	moderator, err := buildModerator(config.CensoredWordsFile, charReplacement)
	if err != nil {
		return exitConfig, err
	}

	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, log, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Collaborators: credential verifier and user directory
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	verifier := auth.NewJWTVerifier(tokens)
	userRepository := repositories.NewUserRepository(db)
	directory := services.NewDirectory(userRepository)
	authService := services.NewAuthService(userRepository, tokens, auth.DefaultArgon2Params)

	// 4. Gateway core
	stats := &sink.DeliveryStats{}
	registry := runtime.NewRegistry(log)
	handler := gateway.NewHandler(log, verifier, directory, registry, moderator, stats,
		config.ConnectionBufferSize, config.HandshakeTimeout)
	transport := gateway.NewTransport(log, handler, gateway.TransportConfig{
		ReadTimeout:    config.ReadTimeout,
		PingInterval:   config.PingInterval,
		WriteTimeout:   config.WriteTimeout,
		MaxMessageSize: config.MaxMessageSize,
	})

	reporter := workers.NewPresenceReporter(log, registry, stats, config.ReportInterval)
	mux := httpapi.Routes(log, httpapi.NewAuthHandler(log, authService), verifier, transport)
	if config.EnableInspector {
		self, _ := process.NewProcess(int32(os.Getpid()))
		mux.Method(http.MethodGet, "/debug/inspect", httpapi.InspectHandler(db, nil, func() map[string]any {
			s := reporter.Collect(self)
			return map[string]any{
				"connections": s.Connections,
				"sockets":     transport.Connections(),
				"enqueued":    s.Enqueued,
				"dropped":     s.Dropped,
				"discarded":   s.Discarded,
				"ram_bytes":   s.RSSBytes,
			}
		}))
		log.Info("Badger inspector available", "url", fmt.Sprintf("http://%s/debug/inspect", config.Address()))
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewHTTPServerWorker(log, config.Address(), mux, config.ShutdownTimeout, transport),
		workers.NewHealthServerWorker(log, config.HealthAddress()),
		reporter,
	)
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	// 7. Wait for Stop
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case <-done:
		return exitRuntime, fmt.Errorf("every worker stopped unexpectedly")
	}

	// 8. Graceful Shutdown
	// The workers drain their own connections once the context is cancelled.
	log.Info("Shutting down gracefully...")
	sup.Stop()
	<-done
	log.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildModerator(path string, charReplacement rune) (*moderation.Moderator, error) {
	if path == "" {
		return nil, nil
	}
	moderator, err := moderation.LoadFile(path, charReplacement)
	if err != nil {
		return nil, fmt.Errorf("censored words: %w", err)
	}
	return moderator, nil
}

func buildBadgerOpts(config internal.Config, log *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if log.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
