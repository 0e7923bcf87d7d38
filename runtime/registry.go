// Package runtime owns the shared routing state of the gateway: which user
// is online on which connection, and which rooms each user is subscribed to.
// It orchestrates delivery without containing business logic or domain rules.
package runtime

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"sync"
)

type Set map[string]struct{}

// Registry is the single synchronized routing table. Operations are O(1) or
// O(room size) and hold the lock only briefly; callers must never perform
// store writes while inside a Registry call.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.ConnSink // user id -> live connection
	roomMembers map[domain.RoomID]Set        // room id -> subscribed user ids
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.ConnSink),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// SetOnline records the user's connection, overwriting any previous one
// (last-connect-wins). The superseded sink, if any, is returned so the caller
// can close it.
func (r *Registry) SetOnline(userID string, sink contract.ConnSink) contract.ConnSink {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.sessions[userID]
	r.sessions[userID] = sink
	if previous == sink {
		return nil
	}
	return previous
}

// Connection resolves a user to their live connection, if any. Lookups are
// always live: call signaling never caches the result.
func (r *Registry) Connection(userID string) (contract.ConnSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[userID]
	return sink, ok
}

// ClearIfCurrent removes the user's presence entry only if it still points at
// the given connection, and reports whether it did. A stale close arriving
// after the user reconnected elsewhere must not evict the newer connection.
func (r *Registry) ClearIfCurrent(userID string, sink contract.ConnSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[userID]
	if !ok || current != sink {
		return false
	}
	delete(r.sessions, userID)
	for room, members := range r.roomMembers {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.roomMembers, room)
		}
	}
	return true
}

// Subscribe adds the user to a room's fan-out group. Membership verification
// happens upstream; the registry trusts its callers.
func (r *Registry) Subscribe(userID string, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(Set)
	}
	r.roomMembers[room][userID] = struct{}{}
}

// Unsubscribe removes the user from a room. Leaving is always safe, so there
// is no check. Empty sets are dropped to prevent slow leaks over time.
func (r *Registry) Unsubscribe(userID string, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.roomMembers[room]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.roomMembers, room)
		}
	}
}

// SinksForRoom resolves the room's subscribers to their live connections.
// Pass excludeUserID to leave out one participant (typing indicators, read
// receipts); pass "" to include everyone.
func (r *Registry) SinksForRoom(room domain.RoomID, excludeUserID string) []contract.ConnSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	var sinks []contract.ConnSink
	for userID := range members {
		if userID == excludeUserID {
			continue
		}
		if sink, online := r.sessions[userID]; online {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// AllSinks returns every live connection (presence broadcasts).
func (r *Registry) AllSinks() []contract.ConnSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.ConnSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

// OnlineCount is used by telemetry.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
