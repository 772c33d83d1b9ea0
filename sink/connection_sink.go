package sink

import (
	"chat-presence/domain/event"
	"chat-presence/domain/presence"
	"chat-presence/errors"
	"context"
	"sync"
	"sync/atomic"
)

// DeliveryStats aggregates outcomes over every connection sink of the process.
type DeliveryStats struct {
	Enqueued atomic.Uint64
	// Dropped counts events refused by a full buffer.
	Dropped atomic.Uint64
	// Discarded counts events still buffered when their connection closed.
	Discarded atomic.Uint64
}

// ConnectionSink buffers outbound events of one connection until the
// transport write pump picks them up.
// There is no backpressure: when the buffer is full the event is dropped.
type ConnectionSink struct {
	ConnectionID presence.ConnectionID
	events       chan event.Event
	stats        *DeliveryStats

	mu     sync.RWMutex
	closed bool
}

func NewConnectionSink(connectionID presence.ConnectionID, bufferSize int, stats *DeliveryStats) *ConnectionSink {
	if stats == nil {
		stats = &DeliveryStats{}
	}
	return &ConnectionSink{
		ConnectionID: connectionID,
		events:       make(chan event.Event, bufferSize),
		stats:        stats,
	}
}

// Consume is called by registry broadcasts and never blocks.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.ErrSessionClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case s.events <- e:
		s.stats.Enqueued.Add(1)
		return nil
	default:
		s.stats.Dropped.Add(1)
		return errors.ErrSinkFull
	}
}

// Events is drained by the transport write pump.
// The channel is closed once the sink is closed.
func (s *ConnectionSink) Events() <-chan event.Event {
	return s.events
}

// Close discards whatever is still buffered and closes the channel.
// Safe to call more than once.
func (s *ConnectionSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for {
		select {
		case <-s.events:
			s.stats.Discarded.Add(1)
		default:
			close(s.events)
			return
		}
	}
}

func (s *ConnectionSink) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *ConnectionSink) Pending() int {
	return len(s.events)
}
