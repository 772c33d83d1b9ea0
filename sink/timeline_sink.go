package sink

import (
	"chat-presence/domain/event"
	"context"
	"sync"
)

// Timeline is the client side view of a gateway connection: the latest
// roster and every chat line received so far.
type Timeline struct {
	mu       sync.RWMutex
	Owner    string
	roster   []event.ClientSummary
	messages []event.ChatBroadcast
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

// Consume folds one received event into the timeline.
// A roster update replaces the previous roster entirely.
func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch evt := e.(type) {
	case event.ClientsUpdated:
		t.roster = append([]event.ClientSummary(nil), evt.Clients...)
	case event.ChatBroadcast:
		t.messages = append(t.messages, evt)
	}
	return nil
}

func (t *Timeline) Roster() []event.ClientSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]event.ClientSummary(nil), t.roster...)
}

func (t *Timeline) Messages() []event.ChatBroadcast {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]event.ChatBroadcast(nil), t.messages...)
}
