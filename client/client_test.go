package client

import (
	"chat-presence/auth"
	"chat-presence/domain/event"
	"chat-presence/gateway"
	"chat-presence/httpapi"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"chat-presence/services"
	"chat-presence/sink"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var fastParams = auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// startGateway runs the whole gateway in process, backed by an in-memory store.
func startGateway(t *testing.T) *httptest.Server {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	tokens := auth.NewTokenManager("test_secret_with_enough_entropy_2026", time.Hour)
	verifier := auth.NewJWTVerifier(tokens)
	users := repositories.NewUserRepository(db)
	handler := gateway.NewHandler(log, verifier, services.NewDirectory(users), runtime.NewRegistry(log),
		nil, &sink.DeliveryStats{}, 16, time.Second)
	transport := gateway.NewTransport(log, handler, gateway.TransportConfig{
		ReadTimeout:    5 * time.Second,
		PingInterval:   time.Second,
		WriteTimeout:   time.Second,
		MaxMessageSize: 4096,
	})
	authHandler := httpapi.NewAuthHandler(log, services.NewAuthService(users, tokens, fastParams))
	server := httptest.NewServer(httpapi.Routes(log, authHandler, verifier, transport))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = transport.Shutdown(ctx)
		server.Close()
		_ = db.Close()
	})
	return server
}

func next(t *testing.T, conn *Conn) event.Event {
	select {
	case e, ok := <-conn.Events():
		require.True(t, ok, "connection closed: %v", conn.Err())
		return e
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no event received")
		return nil
	}
}

func TestClient_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startGateway(t)
	c := New(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL)

	// Given two registered users
	alice, err := c.Register(ctx, "alice@example.com", "ComplexPass123!", "Alice")
	req.NoError(err)
	_, err = c.Register(ctx, "bob@example.com", "ComplexPass123!", "Bob")
	req.NoError(err)
	bob, err := c.Login(ctx, "bob@example.com", "ComplexPass123!")
	req.NoError(err)

	// When both connect
	aliceConn, err := c.Connect(ctx, alice.Token)
	req.NoError(err)
	defer aliceConn.Close()
	aliceTimeline := sink.NewTimeline("alice")
	req.NoError(aliceTimeline.Consume(ctx, next(t, aliceConn)))

	bobConn, err := c.Connect(ctx, bob.Token)
	req.NoError(err)
	req.NoError(aliceTimeline.Consume(ctx, next(t, aliceConn)))
	req.Equal([]string{"Alice", "Bob"}, next(t, bobConn).(event.ClientsUpdated).Names())

	// And Bob says hello then leaves
	req.NoError(bobConn.Send("hello"))
	req.NoError(aliceTimeline.Consume(ctx, next(t, aliceConn)))
	req.NoError(bobConn.Close())
	req.NoError(aliceTimeline.Consume(ctx, next(t, aliceConn)))

	// Then Alice saw the message and ends up alone
	req.Equal([]event.ChatBroadcast{{FullName: "Bob", Message: "hello"}}, aliceTimeline.Messages())
	roster := aliceTimeline.Roster()
	req.Len(roster, 1)
	req.Equal(alice.UserID, roster[0].UserID)
}

func TestClient_Failures(t *testing.T) {
	ctx := context.Background()
	server := startGateway(t)
	c := New(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL)

	t.Run("should surface the login error", func(t *testing.T) {
		_, err := c.Login(ctx, "nobody@example.com", "ComplexPass123!")
		require.ErrorContains(t, err, "401")
	})

	t.Run("should see the socket closed on a bad token", func(t *testing.T) {
		req := require.New(t)
		conn, err := c.Connect(ctx, "not-a-jwt")
		req.NoError(err)
		defer conn.Close()

		select {
		case _, ok := <-conn.Events():
			req.False(ok)
			req.Error(conn.Err())
		case <-time.After(2 * time.Second):
			req.Fail("socket should have been closed")
		}
	})
}
