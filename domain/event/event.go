// Package event defines the payloads exchanged with connected clients.
package event

import (
	"chat-presence/domain/presence"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

type Name string

const (
	ClientsUpdatedName    Name = "clients-updated"
	MessageFromServerName Name = "message-from-server"
	MessageFromClientName Name = "message-from-client"
)

// Event is anything that can be pushed to a connection sink.
type Event interface {
	EventName() Name
}

// ClientSummary is one roster line of a presence update.
type ClientSummary struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
}

// ClientsUpdated carries the full roster so a client can rebuild it from scratch.
type ClientsUpdated struct {
	Clients []ClientSummary
}

func (ClientsUpdated) EventName() Name { return ClientsUpdatedName }

// Names returns the display names of the roster, in roster order.
func (c ClientsUpdated) Names() []string {
	return lo.Map(c.Clients, func(item ClientSummary, _ int) string {
		return item.FullName
	})
}

// ChatBroadcast is sent to every active connection for each inbound message.
type ChatBroadcast struct {
	FullName string `json:"fullName"`
	Message  string `json:"message"`
}

func (ChatBroadcast) EventName() Name { return MessageFromServerName }

// NewMessage is the inbound chat payload.
type NewMessage struct {
	Message string `json:"message"`
}

func (NewMessage) EventName() Name { return MessageFromClientName }

// Envelope is the JSON frame used in both directions.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewClientsUpdated(clients []presence.ConnectedClient) ClientsUpdated {
	return ClientsUpdated{
		Clients: lo.Map(clients, func(item presence.ConnectedClient, _ int) ClientSummary {
			return ClientSummary{
				ID:       string(item.ConnectionID),
				UserID:   string(item.PrincipalID),
				FullName: item.DisplayName,
			}
		}),
	}
}

// Encode wraps an event into its wire envelope.
func Encode(e Event) ([]byte, error) {
	var payload any
	switch evt := e.(type) {
	case ClientsUpdated:
		// A roster is always a list, never null.
		payload = lo.Ternary(evt.Clients == nil, []ClientSummary{}, evt.Clients)
	default:
		payload = evt
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	return json.Marshal(Envelope{Event: e.EventName(), Data: data})
}

// Decode parses a wire envelope into a typed event.
// Unknown event names are returned as an error so the caller can ignore them.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	switch env.Event {
	case MessageFromClientName:
		var msg NewMessage
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				return nil, fmt.Errorf("invalid %s payload: %w", env.Event, err)
			}
		}
		return msg, nil
	case MessageFromServerName:
		var msg ChatBroadcast
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Event, err)
		}
		return msg, nil
	case ClientsUpdatedName:
		var clients []ClientSummary
		if err := json.Unmarshal(env.Data, &clients); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Event, err)
		}
		return ClientsUpdated{Clients: clients}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}
