// Package presence contains the core concepts of the presence gateway.
// No runtime, network, or storage logic should be added here.
package presence

import "time"

// DefaultMessage replaces an empty or missing chat message.
const DefaultMessage = "no-message!!"

// ConnectionID is assigned by the transport and unique while the connection lives.
type ConnectionID string

// PrincipalID identifies the authenticated user behind a connection.
type PrincipalID string

// ConnectedClient is one admitted connection.
// DisplayName is resolved once at admission and kept for the connection's lifetime.
type ConnectedClient struct {
	ConnectionID ConnectionID
	PrincipalID  PrincipalID
	DisplayName  string
	ConnectedAt  time.Time
}

// MessageOrDefault returns the message to broadcast for an inbound payload.
func MessageOrDefault(message string) string {
	if message == "" {
		return DefaultMessage
	}
	return message
}
