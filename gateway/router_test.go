package gateway

import (
	"chat-gateway/domain"
	"chat-gateway/errors"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeChat records calls and returns scripted results.
type fakeChat struct {
	sendErr  error
	sent     []sendMessagePayload
	joined   []string
	left     []string
	typing   int
	stopped  int
	history  []domain.Message
	searched []string
}

func (f *fakeChat) SubscribeAll(string) (int, error) { return 0, nil }

func (f *fakeChat) JoinRoom(_ string, room domain.RoomID) error {
	f.joined = append(f.joined, string(room))
	return nil
}

func (f *fakeChat) LeaveRoom(_ string, room domain.RoomID) {
	f.left = append(f.left, string(room))
}

func (f *fakeChat) Send(_ context.Context, _ domain.Identity, room domain.RoomID,
	text, mediaRef, mediaType string) (domain.Message, error) {
	if f.sendErr != nil {
		return domain.Message{}, f.sendErr
	}
	f.sent = append(f.sent, sendMessagePayload{
		RoomID: string(room), Text: text, MediaRef: mediaRef, MediaType: mediaType,
	})
	return domain.Message{Room: room, Text: text}, nil
}

func (f *fakeChat) MarkRead(domain.Identity, domain.RoomID) (int, error) { return 0, nil }

func (f *fakeChat) Typing(domain.Identity, domain.RoomID)     { f.typing++ }
func (f *fakeChat) StopTyping(domain.Identity, domain.RoomID) { f.stopped++ }

func (f *fakeChat) History(string, domain.RoomID, *string) ([]domain.Message, *string, error) {
	return f.history, nil, nil
}

func (f *fakeChat) Search(_ context.Context, _ string, _ domain.RoomID, terms string, _ int) ([]domain.Message, error) {
	f.searched = append(f.searched, terms)
	return f.history, nil
}

type fakeCalls struct {
	initiateErr error
	initiated   []string
	answered    []string
	candidates  []string
	ended       []string
	rejected    []string
	hangups     []string
}

func (f *fakeCalls) Initiate(_ domain.Identity, calleeID string, _ json.RawMessage) error {
	if f.initiateErr != nil {
		return f.initiateErr
	}
	f.initiated = append(f.initiated, calleeID)
	return nil
}

func (f *fakeCalls) Answer(_ domain.Identity, callerID string, _ json.RawMessage) error {
	f.answered = append(f.answered, callerID)
	return nil
}

func (f *fakeCalls) Candidate(_ domain.Identity, targetID string, _ json.RawMessage) {
	f.candidates = append(f.candidates, targetID)
}

func (f *fakeCalls) Reject(_ domain.Identity, callerID string) {
	f.rejected = append(f.rejected, callerID)
}

func (f *fakeCalls) End(_ domain.Identity, targetID string) {
	f.ended = append(f.ended, targetID)
}

func (f *fakeCalls) HangupAll(userID string) { f.hangups = append(f.hangups, userID) }

func newTestClient(id, name string) *Client {
	return NewClient(slog.Default(), nil, domain.Identity{ID: id, Username: name})
}

// delivered drains everything queued on the client without running a pump.
func delivered(c *Client) []envelope {
	var out []envelope
	for {
		select {
		case env := <-c.send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func frame(t *testing.T, eventName string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(envelope{Event: eventName, Data: data})
	require.NoError(t, err)
	return raw
}

func TestDispatch_SendMessage(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	router := NewRouter(slog.Default(), chat, &fakeCalls{})
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, frame(t, "sendMessage", sendMessagePayload{
		RoomID: "general", Text: "hello",
	}))

	req.Len(chat.sent, 1)
	req.Equal("general", chat.sent[0].RoomID)
	req.Equal("hello", chat.sent[0].Text)
	req.Empty(delivered(alice))
}

func TestDispatch_SendMessageFaultAnswersSenderOnly(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{sendErr: errors.ErrNotAMember}
	router := NewRouter(slog.Default(), chat, &fakeCalls{})
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, frame(t, "sendMessage", sendMessagePayload{
		RoomID: "general", Text: "hello",
	}))

	events := delivered(alice)
	req.Len(events, 1)
	req.Equal("error", events[0].Event)
	req.Contains(string(events[0].Data), errors.ErrNotAMember.Error())
}

func TestDispatch_UnknownEvent(t *testing.T) {
	req := require.New(t)
	router := NewRouter(slog.Default(), &fakeChat{}, &fakeCalls{})
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, frame(t, "mystery", map[string]string{}))

	events := delivered(alice)
	req.Len(events, 1)
	req.Equal("error", events[0].Event)
}

func TestDispatch_MalformedEnvelope(t *testing.T) {
	req := require.New(t)
	router := NewRouter(slog.Default(), &fakeChat{}, &fakeCalls{})
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, []byte("not json at all"))

	events := delivered(alice)
	req.Len(events, 1)
	req.Equal("error", events[0].Event)
}

func TestDispatch_ValidationFailure(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	router := NewRouter(slog.Default(), chat, &fakeCalls{})
	alice := newTestClient("u-alice", "alice")

	// roomId manquant
	router.Dispatch(alice, frame(t, "joinRoom", map[string]string{}))

	req.Empty(chat.joined)
	events := delivered(alice)
	req.Len(events, 1)
	req.Equal("error", events[0].Event)
}

func TestDispatch_InitiateCallOfflineCallee(t *testing.T) {
	req := require.New(t)
	calls := &fakeCalls{initiateErr: errors.ErrTargetOffline}
	router := NewRouter(slog.Default(), &fakeChat{}, calls)
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, frame(t, "initiateCall", initiateCallPayload{
		CalleeID: "u-bob", Offer: json.RawMessage(`{"sdp":"x"}`),
	}))

	events := delivered(alice)
	req.Len(events, 1)
	req.Equal("callError", events[0].Event)
	req.Contains(string(events[0].Data), errors.ErrTargetOffline.Error())
}

func TestDispatch_CallSignalingRoundTrip(t *testing.T) {
	req := require.New(t)
	calls := &fakeCalls{}
	router := NewRouter(slog.Default(), &fakeChat{}, calls)
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, frame(t, "initiateCall", initiateCallPayload{
		CalleeID: "u-bob", Offer: json.RawMessage(`{}`)}))
	router.Dispatch(alice, frame(t, "iceCandidate", iceCandidatePayload{
		TargetID: "u-bob", Candidate: json.RawMessage(`{}`)}))
	router.Dispatch(alice, frame(t, "endCall", endCallPayload{TargetID: "u-bob"}))

	req.Equal([]string{"u-bob"}, calls.initiated)
	req.Equal([]string{"u-bob"}, calls.candidates)
	req.Equal([]string{"u-bob"}, calls.ended)
}

func TestDispatch_FetchHistory(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{history: []domain.Message{
		{Room: "general", SenderID: "u-bob", Text: "earlier"},
	}}
	router := NewRouter(slog.Default(), chat, &fakeCalls{})
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, frame(t, "fetchHistory", fetchHistoryPayload{RoomID: "general"}))

	events := delivered(alice)
	req.Len(events, 1)
	req.Equal("messageHistory", events[0].Event)
	req.Contains(string(events[0].Data), "earlier")
}

func TestDispatch_SearchMessages(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	router := NewRouter(slog.Default(), chat, &fakeCalls{})
	alice := newTestClient("u-alice", "alice")

	router.Dispatch(alice, frame(t, "searchMessages", searchMessagesPayload{
		RoomID: "general", Query: "deploy",
	}))

	req.Equal([]string{"deploy"}, chat.searched)
	events := delivered(alice)
	req.Len(events, 1)
	req.Equal("searchResults", events[0].Event)
}
