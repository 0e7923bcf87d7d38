// Package call models the lifecycle of a one-to-one call as an explicit
// state machine. The gateway only relays negotiation payloads; nothing here
// touches media or interprets session descriptions.
package call

import (
	"chat-gateway/errors"
	"fmt"
)

type State int

const (
	Idle State = iota
	Ringing
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Ringing:
		return "RINGING"
	case Active:
		return "ACTIVE"
	case Ended:
		return "ENDED"
	}
	return "UNKNOWN"
}

// Key identifies a session by its unordered participant pair. A given pair of
// users has at most one live session; there is no call-waiting model.
type Key struct {
	lo, hi string
}

func NewKey(a, b string) Key {
	if a > b {
		a, b = b, a
	}
	return Key{lo: a, hi: b}
}

// Session is purely in-memory. Reaching Ended discards it; nothing about a
// call survives a process restart.
type Session struct {
	CallerID string
	CalleeID string
	state    State
}

func NewSession(callerID, calleeID string) *Session {
	return &Session{CallerID: callerID, CalleeID: calleeID, state: Idle}
}

func (s *Session) State() State { return s.state }

func (s *Session) Key() Key { return NewKey(s.CallerID, s.CalleeID) }

// Peer returns the other participant of the session.
func (s *Session) Peer(userID string) string {
	if userID == s.CallerID {
		return s.CalleeID
	}
	return s.CallerID
}

// Transition moves the session to the next state if the transition is
// allowed. Any state may move to Ended (termination, rejection, disconnect,
// signaling error); otherwise only the forward path Idle -> Ringing -> Active
// is legal.
func (s *Session) Transition(next State) error {
	if next == Ended {
		s.state = Ended
		return nil
	}
	allowed := (s.state == Idle && next == Ringing) ||
		(s.state == Ringing && next == Active)
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, s.state, next)
	}
	s.state = next
	return nil
}

// Live reports whether signaling may still flow through this session.
func (s *Session) Live() bool {
	return s.state == Ringing || s.state == Active
}
