package services

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/domain/event"
	"chat-gateway/domain/mimetypes"
	"chat-gateway/errors"
	"chat-gateway/moderation"
	"chat-gateway/runtime"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

type IChatService interface {
	SubscribeAll(userID string) (int, error)
	JoinRoom(userID string, room domain.RoomID) error
	LeaveRoom(userID string, room domain.RoomID)
	Send(ctx context.Context, sender domain.Identity, room domain.RoomID, text, mediaRef, mediaType string) (domain.Message, error)
	MarkRead(reader domain.Identity, room domain.RoomID) (int, error)
	Typing(sender domain.Identity, room domain.RoomID)
	StopTyping(sender domain.Identity, room domain.RoomID)
	History(readerID string, room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	Search(ctx context.Context, readerID string, room domain.RoomID, terms string, limit int) ([]domain.Message, error)
}

// ChatService implements room fan-out on top of the presence registry and
// the persistence collaborators. The registry lock is never held across a
// store call: membership is checked first, the store write happens
// unlocked, and broadcast resolves subscribers afterwards.
type ChatService struct {
	log        *slog.Logger
	registry   *runtime.Registry
	messages   contract.MessageStore
	members    contract.MembershipStore
	index      contract.MessageIndex
	filter     *moderation.Filter
	indexQueue chan domain.Message
}

func NewChatService(log *slog.Logger, registry *runtime.Registry,
	messages contract.MessageStore, members contract.MembershipStore,
	index contract.MessageIndex, filter *moderation.Filter,
	indexQueue chan domain.Message) *ChatService {
	return &ChatService{
		log:        log,
		registry:   registry,
		messages:   messages,
		members:    members,
		index:      index,
		filter:     filter,
		indexQueue: indexQueue,
	}
}

// SubscribeAll joins the user to every room they are a member of. Called
// once at connection establishment; returns the number of rooms joined.
func (s *ChatService) SubscribeAll(userID string) (int, error) {
	rooms, err := s.members.ListRoomsFor(userID)
	if err != nil {
		return 0, err
	}
	for _, room := range rooms {
		s.registry.Subscribe(userID, room)
	}
	return len(rooms), nil
}

// JoinRoom re-verifies membership before subscribing. An unauthorized join
// is silently ignored so the room's existence is not leaked to outsiders.
func (s *ChatService) JoinRoom(userID string, room domain.RoomID) error {
	isMember, err := s.members.IsMember(userID, room)
	if err != nil {
		return err
	}
	if !isMember {
		s.log.Debug("Ignoring join from non-member", "user_id", userID, "room_id", room)
		return nil
	}
	s.registry.Subscribe(userID, room)
	return nil
}

// LeaveRoom unsubscribes unconditionally: leaving is always safe.
func (s *ChatService) LeaveRoom(userID string, room domain.RoomID) {
	s.registry.Unsubscribe(userID, room)
}

// Send runs the full pipeline: authorize, sanitize, persist, broadcast.
// The broadcast includes the sender's own connection so every client renders
// the same authoritative record, id and timestamp included.
func (s *ChatService) Send(_ context.Context, sender domain.Identity, room domain.RoomID,
	text, mediaRef, mediaType string) (domain.Message, error) {
	if text == "" && mediaRef == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	if mediaRef != "" && !mimetypes.Allowed(mediaType) {
		return domain.Message{}, errors.ErrUnsupportedMediaType
	}

	if err := s.requireMember(sender.ID, room); err != nil {
		return domain.Message{}, err
	}

	lang := ""
	if text != "" {
		var hits int
		text, hits = s.filter.Apply(text)
		if hits > 0 {
			s.log.Info("Censored message content", "room_id", room, "sender_id", sender.ID, "hits", hits)
		}
		lang = moderation.DetectLang(text)
	}

	// Persist before broadcast: nothing reaches subscribers unless the row
	// is durable.
	msg, err := s.messages.Insert(room, sender, text, mediaRef, mediaType, lang)
	if err != nil {
		s.log.Error("Message persistence failed", "room_id", room, "error", err)
		return domain.Message{}, errors.ErrMessageStorage
	}

	select {
	case s.indexQueue <- msg:
	default:
		s.log.Debug("Index queue full, message not indexed", "message_id", msg.ID)
	}

	received := toReceived(msg)
	for _, sink := range s.registry.SinksForRoom(room, "") {
		sink.Deliver(received)
	}
	return msg, nil
}

// MarkRead bulk-flips the read flag on the other participants' messages and
// notifies the room, excluding the reader. Safe to call redundantly: the
// event is emitted again but the persisted state does not change.
func (s *ChatService) MarkRead(reader domain.Identity, room domain.RoomID) (int, error) {
	count, err := s.messages.MarkRoomRead(room, reader.ID)
	if err != nil {
		return 0, err
	}
	notification := event.MessagesRead{RoomID: string(room), ReaderID: reader.ID}
	for _, sink := range s.registry.SinksForRoom(room, reader.ID) {
		sink.Deliver(notification)
	}
	return count, nil
}

// Typing and StopTyping are fire-and-forget: never persisted, no delivery
// guarantee, sender always excluded.

func (s *ChatService) Typing(sender domain.Identity, room domain.RoomID) {
	notification := event.UserTyping{RoomID: string(room), UserID: sender.ID, Name: sender.Username}
	for _, sink := range s.registry.SinksForRoom(room, sender.ID) {
		sink.Deliver(notification)
	}
}

func (s *ChatService) StopTyping(sender domain.Identity, room domain.RoomID) {
	notification := event.UserStoppedTyping{RoomID: string(room), UserID: sender.ID}
	for _, sink := range s.registry.SinksForRoom(room, sender.ID) {
		sink.Deliver(notification)
	}
}

// History serves the catch-up fetch for one room, newest first. Reads are
// gated on membership like writes are.
func (s *ChatService) History(readerID string, room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	if err := s.requireMember(readerID, room); err != nil {
		return nil, nil, err
	}
	return s.messages.List(room, cursor)
}

// Search queries the full-text index for one room.
func (s *ChatService) Search(ctx context.Context, readerID string, room domain.RoomID, terms string, limit int) ([]domain.Message, error) {
	if err := s.requireMember(readerID, room); err != nil {
		return nil, err
	}
	return s.index.Search(ctx, room, terms, limit)
}

func (s *ChatService) requireMember(userID string, room domain.RoomID) error {
	isMember, err := s.members.IsMember(userID, room)
	if err != nil {
		return err
	}
	if !isMember {
		return errors.ErrNotAMember
	}
	return nil
}

func toReceived(msg domain.Message) event.MessageReceived {
	return event.MessageReceived{
		ID:         msg.ID,
		RoomID:     string(msg.Room),
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		MediaRef:   msg.MediaRef,
		MediaType:  msg.MediaType,
		Lang:       msg.Lang,
		CreatedAt:  msg.CreatedAt,
	}
}

// ToReceived converts persisted records for history and search responses.
func ToReceived(messages []domain.Message) []event.MessageReceived {
	return lo.Map(messages, func(item domain.Message, _ int) event.MessageReceived {
		return toReceived(item)
	})
}
