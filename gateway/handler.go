// Package gateway drives the connection lifecycle: admission, chat broadcast
// and retirement, on top of the shared connection registry.
package gateway

import (
	"chat-presence/contract"
	"chat-presence/domain/event"
	"chat-presence/domain/presence"
	"chat-presence/errors"
	"chat-presence/moderation"
	"chat-presence/sink"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
)

type Handler struct {
	log              *slog.Logger
	verifier         contract.IVerifier
	directory        contract.IDirectory
	registry         contract.IRegistry
	moderator        *moderation.Moderator
	stats            *sink.DeliveryStats
	sinkBufferSize   int
	handshakeTimeout time.Duration
}

func NewHandler(log *slog.Logger, verifier contract.IVerifier, directory contract.IDirectory,
	registry contract.IRegistry, moderator *moderation.Moderator, stats *sink.DeliveryStats,
	sinkBufferSize int, handshakeTimeout time.Duration) *Handler {
	return &Handler{
		log:              log,
		verifier:         verifier,
		directory:        directory,
		registry:         registry,
		moderator:        moderator,
		stats:            stats,
		sinkBufferSize:   sinkBufferSize,
		handshakeTimeout: handshakeTimeout,
	}
}

// NewSession opens a connection in the Connecting state.
func (h *Handler) NewSession(connectionID presence.ConnectionID) *Session {
	return newSession(connectionID, sink.NewConnectionSink(connectionID, h.sinkBufferSize, h.stats))
}

// Dispatch applies one transport event to the session.
// Events for a closed session are refused with ErrSessionClosed.
func (h *Handler) Dispatch(ctx context.Context, s *Session, evt TransportEvent) error {
	switch e := evt.(type) {
	case Handshake:
		return h.admit(ctx, s, e.Token)
	case Inbound:
		return h.receive(ctx, s, e.Payload)
	case Disconnect:
		h.retire(ctx, s, e.Err)
		return nil
	default:
		return fmt.Errorf("%w: unsupported event %T", errors.ErrInvalidTransition, evt)
	}
}

// admit moves Connecting -> Authenticated -> Active.
// Verification and lookup run before any registry lock; a session closed
// meanwhile is never registered.
func (h *Handler) admit(ctx context.Context, s *Session, token string) error {
	log := h.log.With("connection_id", s.connectionID)
	if err := h.expect(s, presence.Connecting); err != nil {
		return err
	}

	admissionCtx, cancel := context.WithTimeout(ctx, h.handshakeTimeout)
	defer cancel()

	principalID, err := h.verifier.Verify(admissionCtx, token)
	if err != nil {
		h.reject(ctx, s)
		log.Warn("Handshake rejected", "error", err)
		return wrap(errors.ErrAuthentication, err)
	}
	if !h.advance(s, presence.Authenticated, func() { s.principalID = principalID }) {
		return errors.ErrSessionClosed
	}

	displayName, err := h.directory.LookupName(admissionCtx, principalID)
	if err != nil {
		h.reject(ctx, s)
		log.Warn("Display name unresolved", "user_id", principalID, "error", err)
		return wrap(errors.ErrDirectoryLookup, err)
	}

	client := presence.ConnectedClient{
		ConnectionID: s.connectionID,
		PrincipalID:  principalID,
		DisplayName:  displayName,
		ConnectedAt:  time.Now().UTC(),
	}
	admitted := h.advance(s, presence.Active, func() {
		if err := h.registry.Register(client, s.sink); err != nil {
			// The transport reused a live id: last registration wins.
			log.Error("Duplicate connection id", "error", err)
		}
	})
	if !admitted {
		return errors.ErrSessionClosed
	}

	log.Info("Client connected", "user_id", principalID, "full_name", displayName)
	h.registry.BroadcastPresence(ctx)
	return nil
}

func (h *Handler) receive(ctx context.Context, s *Session, payload event.Event) error {
	if err := h.expect(s, presence.Active); err != nil {
		return err
	}

	msg, ok := payload.(event.NewMessage)
	if !ok {
		h.log.Debug("Ignoring inbound event", "connection_id", s.connectionID, "event", payload.EventName())
		return nil
	}

	fullName, err := h.registry.DisplayNameOf(s.connectionID)
	if err != nil {
		return err
	}

	h.registry.Broadcast(ctx, event.ChatBroadcast{
		FullName: fullName,
		Message:  h.moderator.Censor(presence.MessageOrDefault(msg.Message)),
	})
	return nil
}

// retire closes the session from any state, exactly once.
func (h *Handler) retire(ctx context.Context, s *Session, cause error) {
	s.mu.Lock()
	wasActive := s.state == presence.Active
	if !s.moveTo(presence.Closed) {
		s.mu.Unlock()
		return
	}
	removed := wasActive && h.registry.Remove(s.connectionID)
	s.mu.Unlock()

	s.sink.Close()
	if !removed {
		return
	}

	h.log.Info("Client disconnected", "connection_id", s.connectionID, "user_id", s.principalID, "cause", cause)
	h.registry.BroadcastPresence(ctx)
}

// reject closes a session that failed admission. It was never registered,
// so nothing is broadcast.
func (h *Handler) reject(ctx context.Context, s *Session) {
	h.retire(ctx, s, errors.ErrAuthentication)
}

func (h *Handler) expect(s *Session, state presence.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case state:
		return nil
	case presence.Closed:
		return errors.ErrSessionClosed
	default:
		return fmt.Errorf("%w: %s while %s expected", errors.ErrInvalidTransition, s.state, state)
	}
}

// advance moves the session to next and runs apply atomically with it.
// It fails when the session was closed concurrently.
func (h *Handler) advance(s *Session, next presence.State, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.moveTo(next) {
		return false
	}
	apply()
	return true
}

func wrap(kind, cause error) error {
	if stderrors.Is(cause, kind) {
		return cause
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
