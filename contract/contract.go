//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-gateway/domain"
	"chat-gateway/domain/event"
	"context"
	"reflect"
)

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding the need for manual naming in the Worker interface.
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

// ConnSink is one live client connection seen from the routing side.
// Deliver must never block: a slow consumer loses events (best-effort
// delivery), it does not stall the sender or any other room member.
type ConnSink interface {
	Identity() domain.Identity
	Deliver(e event.Outbound)
}

// MessageStore is the narrow persistence contract the fan-out pipeline
// consumes. Identifier and timestamp assignment belong to the store.
type MessageStore interface {
	Insert(room domain.RoomID, sender domain.Identity, text, mediaRef, mediaType, lang string) (domain.Message, error)
	List(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	MarkRoomRead(room domain.RoomID, readerID string) (int, error)
}

// MembershipStore answers room-membership questions. The gateway never writes
// memberships during normal operation; chat creation lives elsewhere.
type MembershipStore interface {
	IsMember(userID string, room domain.RoomID) (bool, error)
	ListRoomsFor(userID string) ([]domain.RoomID, error)
}

// MessageIndex is the full-text side channel fed after persistence.
type MessageIndex interface {
	Index(msg domain.Message) error
	Search(ctx context.Context, room domain.RoomID, terms string, limit int) ([]domain.Message, error)
}
