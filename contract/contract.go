//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-presence/domain/event"
	"chat-presence/domain/presence"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound queue of a single connection.
// Consume must never block the caller.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IVerifier validates an opaque bearer credential.
type IVerifier interface {
	Verify(ctx context.Context, token string) (presence.PrincipalID, error)
}

// IDirectory resolves the display name of a principal.
type IDirectory interface {
	LookupName(ctx context.Context, principalID presence.PrincipalID) (string, error)
}

type IRegistry interface {
	Register(client presence.ConnectedClient, sink EventSink) error
	Remove(connectionID presence.ConnectionID) bool
	SnapshotAll() []presence.ConnectedClient
	DisplayNameOf(connectionID presence.ConnectionID) (string, error)
	Broadcast(ctx context.Context, e event.Event) int
	BroadcastPresence(ctx context.Context) int
	Len() int
}
