package gateway

import (
	"chat-presence/domain/event"
	"chat-presence/domain/presence"
	"chat-presence/sink"
	"sync"
)

// TransportEvent is one discrete thing the transport reports about a connection.
type TransportEvent interface {
	transportEvent()
}

// Handshake carries the credential presented when the connection was opened.
type Handshake struct {
	Token string
}

// Inbound carries one decoded client frame.
type Inbound struct {
	Payload event.Event
}

// Disconnect reports a peer close, a network error or an idle timeout.
type Disconnect struct {
	Err error
}

func (Handshake) transportEvent()  {}
func (Inbound) transportEvent()    {}
func (Disconnect) transportEvent() {}

// Session is the per connection state machine.
// Only the Handler mutates it, always under mu.
type Session struct {
	mu           sync.Mutex
	connectionID presence.ConnectionID
	principalID  presence.PrincipalID
	state        presence.State
	sink         *sink.ConnectionSink
}

func newSession(connectionID presence.ConnectionID, out *sink.ConnectionSink) *Session {
	return &Session{
		connectionID: connectionID,
		state:        presence.Connecting,
		sink:         out,
	}
}

func (s *Session) ConnectionID() presence.ConnectionID {
	return s.connectionID
}

func (s *Session) State() presence.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) PrincipalID() presence.PrincipalID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principalID
}

// Outbound is drained by the transport write pump.
func (s *Session) Outbound() <-chan event.Event {
	return s.sink.Events()
}

// moveTo must be called with mu held.
func (s *Session) moveTo(next presence.State) bool {
	if !s.state.CanTransition(next) {
		return false
	}
	s.state = next
	return true
}
