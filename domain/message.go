// Package domain contains core concepts of the gateway.
// This file defines Message and related rules.
// Messages are immutable after creation except for the read flag.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a persisted chat message. The identifier and timestamp
// are assigned by the store at insertion time, never by the client.
type Message struct {
	ID         uuid.UUID
	Room       RoomID
	SenderID   string
	SenderName string
	Text       string
	MediaRef   string
	MediaType  string
	Lang       string
	Read       bool
	CreatedAt  time.Time
}

// HasContent reports whether the message carries anything worth persisting.
func (m Message) HasContent() bool {
	return m.Text != "" || m.MediaRef != ""
}
