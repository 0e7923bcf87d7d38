// Package event defines the outbound wire events pushed to connected clients.
// Every event is serialized inside an envelope {"event": name, "data": ...}.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbound is implemented by every event the gateway pushes to a client.
type Outbound interface {
	EventName() string
}

type UserOnline struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

func (UserOnline) EventName() string { return "userOnline" }

type UserOffline struct {
	UserID string `json:"userId"`
}

func (UserOffline) EventName() string { return "userOffline" }

// MessageReceived carries the authoritative persisted record. Clients must
// not render a sent message before receiving this event back.
type MessageReceived struct {
	ID         uuid.UUID `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text,omitempty"`
	MediaRef   string    `json:"mediaRef,omitempty"`
	MediaType  string    `json:"mediaType,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (MessageReceived) EventName() string { return "messageReceived" }

type UserTyping struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

func (UserTyping) EventName() string { return "userTyping" }

type UserStoppedTyping struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (UserStoppedTyping) EventName() string { return "userStoppedTyping" }

type MessagesRead struct {
	RoomID   string `json:"roomId"`
	ReaderID string `json:"readerId"`
}

func (MessagesRead) EventName() string { return "messagesRead" }

// Call signaling payloads are opaque to the gateway: session descriptions and
// candidates are relayed as raw JSON, never inspected.

type IncomingCall struct {
	CallerID   string          `json:"callerId"`
	CallerName string          `json:"callerName"`
	Offer      json.RawMessage `json:"offer"`
}

func (IncomingCall) EventName() string { return "incomingCall" }

type CallAnswered struct {
	Answer     json.RawMessage `json:"answer"`
	AnswererID string          `json:"answererId"`
}

func (CallAnswered) EventName() string { return "callAnswered" }

type IceCandidate struct {
	Candidate json.RawMessage `json:"candidate"`
	SenderID  string          `json:"senderId"`
}

func (IceCandidate) EventName() string { return "iceCandidate" }

type CallEnded struct {
	UserID string `json:"userId"`
}

func (CallEnded) EventName() string { return "callEnded" }

type CallRejected struct {
	UserID string `json:"userId"`
}

func (CallRejected) EventName() string { return "callRejected" }

type CallError struct {
	Message string `json:"message"`
}

func (CallError) EventName() string { return "callError" }

// Error is the caller-only signal for authorization and persistence failures.
type Error struct {
	Message string `json:"message"`
}

func (Error) EventName() string { return "error" }

// MessageHistory answers a catch-up fetch for one room.
type MessageHistory struct {
	RoomID   string            `json:"roomId"`
	Messages []MessageReceived `json:"messages"`
	Cursor   *string           `json:"cursor,omitempty"`
}

func (MessageHistory) EventName() string { return "messageHistory" }

// SearchResults answers a full-text search over one room's messages.
type SearchResults struct {
	RoomID string            `json:"roomId"`
	Query  string            `json:"query"`
	Hits   []MessageReceived `json:"hits"`
}

func (SearchResults) EventName() string { return "searchResults" }
