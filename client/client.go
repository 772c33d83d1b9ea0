// Package client talks to a running gateway the way a browser would:
// account calls over HTTP, then one WebSocket per session.
package client

import (
	"bytes"
	"chat-presence/auth"
	"chat-presence/domain/event"
	"chat-presence/httpapi"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
}

// New expects the gateway base URL, e.g. http://localhost:3000.
func New(log *slog.Logger, baseURL string) *Client {
	return &Client{
		log:        log,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Register(ctx context.Context, email, password, fullName string) (httpapi.SessionResponse, error) {
	return c.post(ctx, "/auth/register", httpapi.RegisterRequest{Email: email, Password: password, FullName: fullName})
}

func (c *Client) Login(ctx context.Context, email, password string) (httpapi.SessionResponse, error) {
	return c.post(ctx, "/auth/login", httpapi.LoginRequest{Email: email, Password: password})
}

// Connect opens the gateway socket, presenting token at handshake.
func (c *Client) Connect(ctx context.Context, token string) (*Conn, error) {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	header := http.Header{auth.AuthenticationHeader: []string{token}}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn := &Conn{
		log:    c.log,
		ws:     ws,
		events: make(chan event.Event, 64),
	}
	go conn.readLoop()
	return conn, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (httpapi.SessionResponse, error) {
	var session httpapi.SessionResponse
	raw, err := json.Marshal(body)
	if err != nil {
		return session, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return session, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return session, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return session, fmt.Errorf("%s: %s (%d)", path, failure.Error, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return session, fmt.Errorf("%s: invalid response: %w", path, err)
	}
	return session, nil
}

// Conn is one admitted gateway connection.
type Conn struct {
	log       *slog.Logger
	ws        *websocket.Conn
	events    chan event.Event
	writeMu   sync.Mutex
	closeOnce sync.Once
	err       error
}

// Events yields every decoded server event. It is closed when the socket ends,
// Err then tells why.
func (c *Conn) Events() <-chan event.Event {
	return c.events
}

func (c *Conn) Send(message string) error {
	data, err := json.Marshal(event.NewMessage{Message: message})
	if err != nil {
		return err
	}
	raw, err := json.Marshal(event.Envelope{Event: event.MessageFromClientName, Data: data})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// Close says goodbye to the gateway then drops the socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// Err is only meaningful once Events is closed.
func (c *Conn) Err() error {
	return c.err
}

func (c *Conn) readLoop() {
	defer close(c.events)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.err = err
			}
			return
		}
		evt, err := event.Decode(raw)
		if err != nil {
			c.log.Debug("Ignoring server frame", "error", err)
			continue
		}
		c.events <- evt
	}
}
