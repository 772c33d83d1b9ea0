package gateway

import (
	"chat-presence/auth"
	"chat-presence/domain/event"
	"chat-presence/domain/presence"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type TransportConfig struct {
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// Transport upgrades HTTP requests to WebSocket connections and turns
// socket activity into handler events.
type Transport struct {
	log      *slog.Logger
	handler  *Handler
	cfg      TransportConfig
	upgrader websocket.Upgrader

	// ctx outlives every request and is cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closing bool
	sockets map[presence.ConnectionID]*websocket.Conn
}

func NewTransport(log *slog.Logger, handler *Handler, cfg TransportConfig) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		log:     log,
		handler: handler,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from any origin, the credential is what gets checked.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:     ctx,
		cancel:  cancel,
		sockets: make(map[presence.ConnectionID]*websocket.Conn),
	}
}

func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	connectionID := presence.ConnectionID(uuid.NewString())
	if !t.track(connectionID, conn) {
		t.closeWith(conn, websocket.CloseGoingAway, "server shutting down")
		return
	}
	session := t.handler.NewSession(connectionID)

	// The credential is only read at handshake time, never per message.
	if err := t.handler.Dispatch(t.ctx, session, Handshake{Token: auth.CredentialFromRequest(r)}); err != nil {
		t.log.Info("Connection rejected", "connection_id", connectionID, "remote_addr", r.RemoteAddr, "error", err)
		t.closeWith(conn, websocket.ClosePolicyViolation, "unauthorized")
		t.untrack(connectionID)
		return
	}

	if !t.startPumps(conn, session) {
		_ = t.handler.Dispatch(t.ctx, session, Disconnect{})
		t.closeWith(conn, websocket.CloseGoingAway, "server shutting down")
		t.untrack(connectionID)
	}
}

// startPumps is refused once Shutdown has begun, so that no pump is added
// to wg while Shutdown waits on it.
func (t *Transport) startPumps(conn *websocket.Conn, s *Session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing {
		return false
	}
	t.wg.Add(2)
	go t.writePump(conn, s)
	go t.readPump(conn, s)
	return true
}

// readPump dispatches inbound frames one at a time, which keeps the
// broadcasts of a single connection in the order it sent them.
func (t *Transport) readPump(conn *websocket.Conn, s *Session) {
	var cause error
	defer func() {
		_ = t.handler.Dispatch(t.ctx, s, Disconnect{Err: cause})
		t.untrack(s.ConnectionID())
		_ = conn.Close()
		t.wg.Done()
	}()

	conn.SetReadLimit(t.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.log.Warn("Unexpected close", "connection_id", s.ConnectionID(), "error", err)
			}
			cause = err
			return
		}

		evt, err := event.Decode(raw)
		if err != nil {
			t.log.Debug("Ignoring inbound frame", "connection_id", s.ConnectionID(), "error", err)
			continue
		}
		if err := t.handler.Dispatch(t.ctx, s, Inbound{Payload: evt}); err != nil {
			cause = err
			return
		}
	}
}

// writePump is the only writer of data frames on conn.
// It stops when the session sink is closed or a write fails.
func (t *Transport) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		t.wg.Done()
	}()

	for {
		select {
		case e, ok := <-s.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			raw, err := event.Encode(e)
			if err != nil {
				t.log.Error("Unable to encode event", "connection_id", s.ConnectionID(), "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				t.log.Debug("Write failed", "connection_id", s.ConnectionID(), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Shutdown refuses new connections, closes every live socket and waits
// for the pumps to exit or ctx to expire.
func (t *Transport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closing = true
	sockets := make([]*websocket.Conn, 0, len(t.sockets))
	for _, conn := range t.sockets {
		sockets = append(sockets, conn)
	}
	t.mu.Unlock()

	t.cancel()
	for _, conn := range sockets {
		t.closeWith(conn, websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connections returns the number of open sockets, admitted or not.
func (t *Transport) Connections() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sockets)
}

func (t *Transport) track(connectionID presence.ConnectionID, conn *websocket.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing {
		return false
	}
	t.sockets[connectionID] = conn
	return true
}

func (t *Transport) untrack(connectionID presence.ConnectionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sockets, connectionID)
}

// closeWith sends a close frame then drops the socket.
// WriteControl may run concurrently with the write pump.
func (t *Transport) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(t.cfg.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
