package repositories

import (
	"chat-gateway/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// messageKey formats "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(room domain.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", room, at.UnixNano(), id))
}

func roomPrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

// Insert assigns the identifier and server timestamp, then persists the row.
// The returned Message is the authoritative record broadcast to the room;
// callers must not fabricate their own id or timestamp.
func (m MessageRepository) Insert(room domain.RoomID, sender domain.Identity,
	text, mediaRef, mediaType, lang string) (domain.Message, error) {
	msg := domain.Message{
		ID:         uuid.New(),
		Room:       room,
		SenderID:   sender.ID,
		SenderName: sender.Username,
		Text:       text,
		MediaRef:   mediaRef,
		MediaType:  mediaType,
		Lang:       lang,
		Read:       false,
		CreatedAt:  time.Now().UTC(),
	}
	bytes, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg.Room, msg.CreatedAt, msg.ID), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// List retrieves messages for a room, newest first, using a reverse prefix
// scan. Thanks to the padded timestamp in the key, messages are naturally
// sorted by time. The returned cursor resumes the scan on the next call.
func (m MessageRepository) List(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string

	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key, then walk backwards.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

// MarkRoomRead flips the read flag on every message in the room not authored
// by the reader, in a single transaction. Returns the number of rows touched;
// re-marking an already-read room is a no-op with count zero.
func (m MessageRepository) MarkRoomRead(room domain.RoomID, readerID string) (int, error) {
	count := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var msg domain.Message
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			})
			if err != nil {
				return err
			}
			if msg.SenderID == readerID || msg.Read {
				continue
			}
			msg.Read = true
			bytes, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(item.KeyCopy(nil), bytes); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
