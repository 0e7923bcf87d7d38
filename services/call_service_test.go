package services

import (
	"chat-gateway/domain/call"
	"chat-gateway/domain/event"
	"chat-gateway/errors"
	"chat-gateway/runtime"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type callFixture struct {
	service  *CallService
	registry *runtime.Registry
}

func newCallFixture(t *testing.T) callFixture {
	t.Helper()
	registry := runtime.NewRegistry()
	return callFixture{
		service:  NewCallService(slog.Default(), registry),
		registry: registry,
	}
}

func (f callFixture) online(id, name string) *stubSink {
	sink := newStubSink(id, name)
	f.registry.SetOnline(id, sink)
	return sink
}

func TestInitiate_OfflineCalleeNeverRings(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	alice := f.online("u-alice", "alice")

	err := f.service.Initiate(alice.Identity(), "u-bob", json.RawMessage(`{"sdp":"offer"}`))
	req.ErrorIs(err, errors.ErrTargetOffline)

	// Then no session was created at all
	_, tracked := f.service.SessionState("u-alice", "u-bob")
	req.False(tracked)
}

func TestCall_FullNegotiationSequence(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	alice := f.online("u-alice", "alice")
	bob := f.online("u-bob", "bob")

	// Given Alice rings Bob
	offer := json.RawMessage(`{"sdp":"offer"}`)
	req.NoError(f.service.Initiate(alice.Identity(), "u-bob", offer))

	state, tracked := f.service.SessionState("u-alice", "u-bob")
	req.True(tracked)
	req.Equal(call.Ringing, state)

	events := bob.Events()
	req.Len(events, 1)
	incoming, ok := events[0].(event.IncomingCall)
	req.True(ok)
	req.Equal("u-alice", incoming.CallerID)
	req.Equal("alice", incoming.CallerName)
	req.JSONEq(string(offer), string(incoming.Offer))

	// When Bob answers
	answer := json.RawMessage(`{"sdp":"answer"}`)
	req.NoError(f.service.Answer(bob.Identity(), "u-alice", answer))

	state, tracked = f.service.SessionState("u-alice", "u-bob")
	req.True(tracked)
	req.Equal(call.Active, state)

	answered, ok := alice.Events()[0].(event.CallAnswered)
	req.True(ok)
	req.Equal("u-bob", answered.AnswererID)

	// And candidates flow both ways while the call is live
	f.service.Candidate(alice.Identity(), "u-bob", json.RawMessage(`{"c":1}`))
	f.service.Candidate(bob.Identity(), "u-alice", json.RawMessage(`{"c":2}`))
	_, ok = bob.Events()[1].(event.IceCandidate)
	req.True(ok)
	_, ok = alice.Events()[1].(event.IceCandidate)
	req.True(ok)

	// When Alice hangs up
	f.service.End(alice.Identity(), "u-bob")

	_, tracked = f.service.SessionState("u-alice", "u-bob")
	req.False(tracked)
	ended, ok := bob.Events()[2].(event.CallEnded)
	req.True(ok)
	req.Equal("u-alice", ended.UserID)
}

func TestAnswer_WithoutRingingSession(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	bob := f.online("u-bob", "bob")
	f.online("u-alice", "alice")

	err := f.service.Answer(bob.Identity(), "u-alice", json.RawMessage(`{}`))
	req.ErrorIs(err, errors.ErrNoSuchCall)
}

func TestAnswer_DoubleAnswerIsInvalid(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	alice := f.online("u-alice", "alice")
	bob := f.online("u-bob", "bob")

	req.NoError(f.service.Initiate(alice.Identity(), "u-bob", json.RawMessage(`{}`)))
	req.NoError(f.service.Answer(bob.Identity(), "u-alice", json.RawMessage(`{}`)))

	err := f.service.Answer(bob.Identity(), "u-alice", json.RawMessage(`{}`))
	req.ErrorIs(err, errors.ErrInvalidTransition)
}

func TestReject_TellsCallerAndDropsSession(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	alice := f.online("u-alice", "alice")
	bob := f.online("u-bob", "bob")

	req.NoError(f.service.Initiate(alice.Identity(), "u-bob", json.RawMessage(`{}`)))
	f.service.Reject(bob.Identity(), "u-alice")

	_, tracked := f.service.SessionState("u-alice", "u-bob")
	req.False(tracked)
	rejected, ok := alice.Events()[0].(event.CallRejected)
	req.True(ok)
	req.Equal("u-bob", rejected.UserID)
}

func TestCandidate_DroppedWithoutLiveSession(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	alice := f.online("u-alice", "alice")
	bob := f.online("u-bob", "bob")

	// Sans session, le candidat est ignoré en silence
	f.service.Candidate(alice.Identity(), "u-bob", json.RawMessage(`{"c":1}`))
	req.Empty(bob.Events())
}

func TestHangupAll_NotifiesEveryPeer(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	alice := f.online("u-alice", "alice")
	bob := f.online("u-bob", "bob")
	carol := f.online("u-carol", "carol")

	// Given Alice is in a call with Bob and ringing Carol
	req.NoError(f.service.Initiate(alice.Identity(), "u-bob", json.RawMessage(`{}`)))
	req.NoError(f.service.Answer(bob.Identity(), "u-alice", json.RawMessage(`{}`)))
	req.NoError(f.service.Initiate(alice.Identity(), "u-carol", json.RawMessage(`{}`)))

	// When her connection drops
	f.service.HangupAll("u-alice")

	// Then both peers hear the hangup and no session survives
	_, tracked := f.service.SessionState("u-alice", "u-bob")
	req.False(tracked)
	_, tracked = f.service.SessionState("u-alice", "u-carol")
	req.False(tracked)

	bobEvents := bob.Events()
	ended, ok := bobEvents[len(bobEvents)-1].(event.CallEnded)
	req.True(ok)
	req.Equal("u-alice", ended.UserID)
	carolEvents := carol.Events()
	ended, ok = carolEvents[len(carolEvents)-1].(event.CallEnded)
	req.True(ok)
	req.Equal("u-alice", ended.UserID)
}

func TestEnd_RelaysEvenWithoutTrackedSession(t *testing.T) {
	req := require.New(t)
	f := newCallFixture(t)
	alice := f.online("u-alice", "alice")
	bob := f.online("u-bob", "bob")

	f.service.End(alice.Identity(), "u-bob")

	ended, ok := bob.Events()[0].(event.CallEnded)
	req.True(ok)
	req.Equal("u-alice", ended.UserID)
}
