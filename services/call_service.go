package services

import (
	"chat-gateway/domain"
	"chat-gateway/domain/call"
	"chat-gateway/domain/event"
	"chat-gateway/errors"
	"chat-gateway/runtime"
	"encoding/json"
	"log/slog"
	"sync"
)

type ICallService interface {
	Initiate(caller domain.Identity, calleeID string, offer json.RawMessage) error
	Answer(callee domain.Identity, callerID string, answer json.RawMessage) error
	Candidate(sender domain.Identity, targetID string, candidate json.RawMessage)
	Reject(callee domain.Identity, callerID string)
	End(party domain.Identity, targetID string)
	HangupAll(userID string)
}

// CallService relays negotiation payloads point-to-point over the presence
// registry, independent of room membership. One session table entry exists
// per unordered participant pair; reaching Ended discards it.
type CallService struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry *runtime.Registry
	sessions map[call.Key]*call.Session
}

func NewCallService(log *slog.Logger, registry *runtime.Registry) *CallService {
	return &CallService{
		log:      log,
		registry: registry,
		sessions: make(map[call.Key]*call.Session),
	}
}

// Initiate relays the offer to the callee and rings the session. If the
// callee is offline the call never starts and only the caller hears about it.
func (s *CallService) Initiate(caller domain.Identity, calleeID string, offer json.RawMessage) error {
	calleeSink, online := s.registry.Connection(calleeID)
	if !online {
		return errors.ErrTargetOffline
	}

	session := call.NewSession(caller.ID, calleeID)
	if err := session.Transition(call.Ringing); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[session.Key()] = session
	s.mu.Unlock()

	calleeSink.Deliver(event.IncomingCall{
		CallerID:   caller.ID,
		CallerName: caller.Username,
		Offer:      offer,
	})
	s.log.Info("Call initiated", "caller_id", caller.ID, "callee_id", calleeID)
	return nil
}

// Answer relays the answer to the caller's current connection. The lookup is
// live, not cached from initiation, so a caller reconnect mid-ring is
// tolerated.
func (s *CallService) Answer(callee domain.Identity, callerID string, answer json.RawMessage) error {
	s.mu.Lock()
	session, ok := s.sessions[call.NewKey(callee.ID, callerID)]
	if !ok {
		s.mu.Unlock()
		return errors.ErrNoSuchCall
	}
	if err := session.Transition(call.Active); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	callerSink, online := s.registry.Connection(callerID)
	if !online {
		s.drop(session)
		return errors.ErrTargetOffline
	}

	callerSink.Deliver(event.CallAnswered{Answer: answer, AnswererID: callee.ID})
	s.log.Info("Call answered", "caller_id", callerID, "callee_id", callee.ID)
	return nil
}

// Candidate relays a connectivity candidate while the session is live.
// Candidates are best-effort: no session or an offline target drops them
// silently, they may arrive out of order or be superseded.
func (s *CallService) Candidate(sender domain.Identity, targetID string, candidate json.RawMessage) {
	s.mu.Lock()
	session, ok := s.sessions[call.NewKey(sender.ID, targetID)]
	live := ok && session.Live()
	s.mu.Unlock()
	if !live {
		return
	}

	targetSink, online := s.registry.Connection(targetID)
	if !online {
		return
	}
	targetSink.Deliver(event.IceCandidate{Candidate: candidate, SenderID: sender.ID})
}

// Reject ends a ringing session and tells the caller.
func (s *CallService) Reject(callee domain.Identity, callerID string) {
	s.mu.Lock()
	session, ok := s.sessions[call.NewKey(callee.ID, callerID)]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.drop(session)

	if callerSink, online := s.registry.Connection(callerID); online {
		callerSink.Deliver(event.CallRejected{UserID: callee.ID})
	}
	s.log.Info("Call rejected", "caller_id", callerID, "callee_id", callee.ID)
}

// End terminates the session from either side and tells the other party.
func (s *CallService) End(party domain.Identity, targetID string) {
	s.mu.Lock()
	session, ok := s.sessions[call.NewKey(party.ID, targetID)]
	s.mu.Unlock()
	if ok {
		s.drop(session)
	}

	// The notification is relayed even without a tracked session: the peer
	// may have restarted mid-call and still shows an active call UI.
	if targetSink, online := s.registry.Connection(targetID); online {
		targetSink.Deliver(event.CallEnded{UserID: party.ID})
	}
	s.log.Info("Call ended", "by", party.ID, "peer", targetID)
}

// HangupAll forces every live call involving the user to Ended and notifies
// the other side. Called on disconnect; rings cannot outlive their caller.
func (s *CallService) HangupAll(userID string) {
	s.mu.Lock()
	var involved []*call.Session
	for _, session := range s.sessions {
		if session.CallerID == userID || session.CalleeID == userID {
			involved = append(involved, session)
		}
	}
	s.mu.Unlock()

	for _, session := range involved {
		s.drop(session)
		peerID := session.Peer(userID)
		if peerSink, online := s.registry.Connection(peerID); online {
			peerSink.Deliver(event.CallEnded{UserID: userID})
		}
	}
}

// SessionState exposes the FSM state for tests and the debug surface.
func (s *CallService) SessionState(a, b string) (call.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[call.NewKey(a, b)]
	if !ok {
		return call.Ended, false
	}
	return session.State(), true
}

func (s *CallService) drop(session *call.Session) {
	_ = session.Transition(call.Ended)
	s.mu.Lock()
	delete(s.sessions, session.Key())
	s.mu.Unlock()
}
