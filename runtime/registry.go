package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain/event"
	"chat-presence/domain/presence"
	"chat-presence/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type member struct {
	client presence.ConnectedClient
	sink   contract.EventSink
}

// Registry is the process-wide view of admitted connections.
// Every operation runs under mu, broadcasts included, so a reader never
// observes a half applied register or remove.
type Registry struct {
	mu      sync.RWMutex
	log     *slog.Logger
	members []member                      // insertion order, swap-removed
	index   map[presence.ConnectionID]int // connection -> position in members
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		index: make(map[presence.ConnectionID]int),
	}
}

// Register inserts an admitted connection.
// An id that is already present is overwritten in place (last write wins)
// and ErrDuplicateConnection is returned so the caller can report the
// transport anomaly.
func (r *Registry) Register(client presence.ConnectedClient, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pos, ok := r.index[client.ConnectionID]; ok {
		r.members[pos] = member{client: client, sink: sink}
		return fmt.Errorf("%w: %s", errors.ErrDuplicateConnection, client.ConnectionID)
	}
	r.index[client.ConnectionID] = len(r.members)
	r.members = append(r.members, member{client: client, sink: sink})
	return nil
}

// Remove deletes a connection and reports whether it was present.
// Removing an absent id is a no-op: disconnect handlers may fire twice.
// The last member takes the freed position, so order is not stable across removals.
func (r *Registry) Remove(connectionID presence.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[connectionID]
	if !ok {
		return false
	}
	last := len(r.members) - 1
	if pos != last {
		r.members[pos] = r.members[last]
		r.index[r.members[pos].client.ConnectionID] = pos
	}
	r.members[last] = member{}
	r.members = r.members[:last]
	delete(r.index, connectionID)
	return true
}

// SnapshotAll returns a point-in-time copy of every admitted connection.
func (r *Registry) SnapshotAll() []presence.ConnectedClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

// DisplayNameOf returns the name cached when the connection was admitted.
func (r *Registry) DisplayNameOf(connectionID presence.ConnectionID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[connectionID]
	if !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrNotFound, connectionID)
	}
	return r.members[pos].client.DisplayName, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast enqueues e to every member and returns how many sinks accepted it.
// Delivery is best effort: a sink refusing the event is only logged.
func (r *Registry) Broadcast(ctx context.Context, e event.Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fanout(ctx, e)
}

// BroadcastPresence sends the current roster to every member.
// The roster and the recipients come from the same locked view, so the
// update never reflects a state that is not committed yet.
func (r *Registry) BroadcastPresence(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fanout(ctx, event.NewClientsUpdated(r.snapshot()))
}

func (r *Registry) snapshot() []presence.ConnectedClient {
	clients := make([]presence.ConnectedClient, len(r.members))
	for i, m := range r.members {
		clients[i] = m.client
	}
	return clients
}

func (r *Registry) fanout(ctx context.Context, e event.Event) int {
	delivered := 0
	for _, m := range r.members {
		if err := m.sink.Consume(ctx, e); err != nil {
			r.log.Debug("Event not delivered",
				"connection_id", m.client.ConnectionID,
				"event", e.EventName(),
				"error", err)
			continue
		}
		delivered++
	}
	return delivered
}
