package gateway

import (
	"chat-gateway/domain"
	"chat-gateway/domain/event"
	"chat-gateway/errors"
	"chat-gateway/services"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Inbound payloads. Field names mirror what clients already send.

type roomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type sendMessagePayload struct {
	RoomID    string `json:"roomId" validate:"required"`
	Text      string `json:"text"`
	MediaRef  string `json:"mediaRef"`
	MediaType string `json:"mediaType"`
}

type initiateCallPayload struct {
	CalleeID string          `json:"calleeId" validate:"required"`
	Offer    json.RawMessage `json:"offer" validate:"required"`
}

type answerCallPayload struct {
	CallerID string          `json:"callerId" validate:"required"`
	Answer   json.RawMessage `json:"answer" validate:"required"`
}

type iceCandidatePayload struct {
	TargetID  string          `json:"targetId" validate:"required"`
	Candidate json.RawMessage `json:"candidate" validate:"required"`
}

type endCallPayload struct {
	TargetID string `json:"targetId" validate:"required"`
}

type rejectCallPayload struct {
	CallerID string `json:"callerId" validate:"required"`
}

type fetchHistoryPayload struct {
	RoomID string  `json:"roomId" validate:"required"`
	Cursor *string `json:"cursor"`
}

type searchMessagesPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	Query  string `json:"query" validate:"required"`
	Limit  int    `json:"limit" validate:"gte=0,lte=100"`
}

const defaultSearchLimit = 20

// Router decodes inbound envelopes and drives the services. Faults are
// reported to the offending connection only; the rest of the room never
// hears about them.
type Router struct {
	log      *slog.Logger
	validate *validator.Validate
	chat     services.IChatService
	calls    services.ICallService
}

func NewRouter(log *slog.Logger, chat services.IChatService, calls services.ICallService) *Router {
	return &Router{
		log:      log,
		validate: validator.New(),
		chat:     chat,
		calls:    calls,
	}
}

// Dispatch routes one raw frame from a client. It never panics the pump: a
// malformed or unauthorized frame answers the sender and drops the frame.
func (r *Router) Dispatch(c *Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.Deliver(event.Error{Message: "malformed envelope"})
		return
	}

	switch env.Event {
	case "joinRoom":
		r.handleJoinRoom(c, env.Data)
	case "leaveRoom":
		r.handleLeaveRoom(c, env.Data)
	case "sendMessage":
		r.handleSendMessage(c, env.Data)
	case "typing":
		r.handleTyping(c, env.Data)
	case "stopTyping":
		r.handleStopTyping(c, env.Data)
	case "markRead":
		r.handleMarkRead(c, env.Data)
	case "fetchHistory":
		r.handleFetchHistory(c, env.Data)
	case "searchMessages":
		r.handleSearchMessages(c, env.Data)
	case "initiateCall":
		r.handleInitiateCall(c, env.Data)
	case "answerCall":
		r.handleAnswerCall(c, env.Data)
	case "iceCandidate":
		r.handleIceCandidate(c, env.Data)
	case "endCall":
		r.handleEndCall(c, env.Data)
	case "rejectCall":
		r.handleRejectCall(c, env.Data)
	default:
		r.log.Debug("Unknown inbound event", "event", env.Event, "user_id", c.Identity().ID)
		c.Deliver(event.Error{Message: errors.ErrUnknownEvent.Error() + ": " + env.Event})
	}
}

// decode unmarshals and validates one payload, answering the client on
// failure. Returns false when the frame must be dropped.
func (r *Router) decode(c *Client, data json.RawMessage, payload any) bool {
	if err := json.Unmarshal(data, payload); err != nil {
		c.Deliver(event.Error{Message: "malformed payload"})
		return false
	}
	if err := r.validate.Struct(payload); err != nil {
		c.Deliver(event.Error{Message: "invalid payload: " + err.Error()})
		return false
	}
	return true
}

func (r *Router) handleJoinRoom(c *Client, data json.RawMessage) {
	var p roomPayload
	if !r.decode(c, data, &p) {
		return
	}
	if err := r.chat.JoinRoom(c.Identity().ID, domain.RoomID(p.RoomID)); err != nil {
		r.fault(c, "joinRoom", err)
	}
}

func (r *Router) handleLeaveRoom(c *Client, data json.RawMessage) {
	var p roomPayload
	if !r.decode(c, data, &p) {
		return
	}
	r.chat.LeaveRoom(c.Identity().ID, domain.RoomID(p.RoomID))
}

func (r *Router) handleSendMessage(c *Client, data json.RawMessage) {
	var p sendMessagePayload
	if !r.decode(c, data, &p) {
		return
	}
	_, err := r.chat.Send(context.Background(), c.Identity(), domain.RoomID(p.RoomID),
		p.Text, p.MediaRef, p.MediaType)
	if err != nil {
		r.fault(c, "sendMessage", err)
	}
}

func (r *Router) handleTyping(c *Client, data json.RawMessage) {
	var p roomPayload
	if !r.decode(c, data, &p) {
		return
	}
	r.chat.Typing(c.Identity(), domain.RoomID(p.RoomID))
}

func (r *Router) handleStopTyping(c *Client, data json.RawMessage) {
	var p roomPayload
	if !r.decode(c, data, &p) {
		return
	}
	r.chat.StopTyping(c.Identity(), domain.RoomID(p.RoomID))
}

func (r *Router) handleMarkRead(c *Client, data json.RawMessage) {
	var p roomPayload
	if !r.decode(c, data, &p) {
		return
	}
	if _, err := r.chat.MarkRead(c.Identity(), domain.RoomID(p.RoomID)); err != nil {
		r.fault(c, "markRead", err)
	}
}

func (r *Router) handleFetchHistory(c *Client, data json.RawMessage) {
	var p fetchHistoryPayload
	if !r.decode(c, data, &p) {
		return
	}
	messages, cursor, err := r.chat.History(c.Identity().ID, domain.RoomID(p.RoomID), p.Cursor)
	if err != nil {
		r.fault(c, "fetchHistory", err)
		return
	}
	c.Deliver(event.MessageHistory{
		RoomID:   p.RoomID,
		Messages: services.ToReceived(messages),
		Cursor:   cursor,
	})
}

func (r *Router) handleSearchMessages(c *Client, data json.RawMessage) {
	var p searchMessagesPayload
	if !r.decode(c, data, &p) {
		return
	}
	if p.Limit == 0 {
		p.Limit = defaultSearchLimit
	}
	hits, err := r.chat.Search(context.Background(), c.Identity().ID,
		domain.RoomID(p.RoomID), p.Query, p.Limit)
	if err != nil {
		r.fault(c, "searchMessages", err)
		return
	}
	c.Deliver(event.SearchResults{
		RoomID: p.RoomID,
		Query:  p.Query,
		Hits:   services.ToReceived(hits),
	})
}

func (r *Router) handleInitiateCall(c *Client, data json.RawMessage) {
	var p initiateCallPayload
	if !r.decode(c, data, &p) {
		return
	}
	if err := r.calls.Initiate(c.Identity(), p.CalleeID, p.Offer); err != nil {
		r.callFault(c, "initiateCall", err)
	}
}

func (r *Router) handleAnswerCall(c *Client, data json.RawMessage) {
	var p answerCallPayload
	if !r.decode(c, data, &p) {
		return
	}
	if err := r.calls.Answer(c.Identity(), p.CallerID, p.Answer); err != nil {
		r.callFault(c, "answerCall", err)
	}
}

func (r *Router) handleIceCandidate(c *Client, data json.RawMessage) {
	var p iceCandidatePayload
	if !r.decode(c, data, &p) {
		return
	}
	r.calls.Candidate(c.Identity(), p.TargetID, p.Candidate)
}

func (r *Router) handleEndCall(c *Client, data json.RawMessage) {
	var p endCallPayload
	if !r.decode(c, data, &p) {
		return
	}
	r.calls.End(c.Identity(), p.TargetID)
}

func (r *Router) handleRejectCall(c *Client, data json.RawMessage) {
	var p rejectCallPayload
	if !r.decode(c, data, &p) {
		return
	}
	r.calls.Reject(c.Identity(), p.CallerID)
}

// fault answers a chat-side failure to the offending connection only.
func (r *Router) fault(c *Client, op string, err error) {
	r.log.Warn("Rejected frame", "op", op, "user_id", c.Identity().ID, "error", err)
	c.Deliver(event.Error{Message: err.Error()})
}

// callFault does the same for signaling failures, on the channel call UIs
// listen to.
func (r *Router) callFault(c *Client, op string, err error) {
	r.log.Warn("Rejected signaling frame", "op", op, "user_id", c.Identity().ID, "error", err)
	c.Deliver(event.CallError{Message: err.Error()})
}
