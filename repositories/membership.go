package repositories

import (
	"chat-gateway/domain"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// MembershipRepository keeps the user-room membership records the gateway
// checks before honoring joins and sends. Rows are written by the chat
// management surface (or the seed tool); the gateway itself only reads them.
//
// Two key families support both lookup directions:
//
//	member:{user_id}:{room_id}     -> list rooms of a user
//	roommember:{room_id}:{user_id} -> list users of a room
type MembershipRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMembershipRepository(db *badger.DB, log *slog.Logger) MembershipRepository {
	return MembershipRepository{db: db, log: log}
}

func memberKey(userID string, room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", userID, room))
}

func roomMemberKey(room domain.RoomID, userID string) []byte {
	return []byte(fmt.Sprintf("roommember:%s:%s", room, userID))
}

func (r MembershipRepository) AddMember(userID string, room domain.RoomID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(memberKey(userID, room), nil); err != nil {
			return err
		}
		return txn.Set(roomMemberKey(room, userID), nil)
	})
}

func (r MembershipRepository) IsMember(userID string, room domain.RoomID) (bool, error) {
	isMember := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(userID, room))
		switch err {
		case nil:
			isMember = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	return isMember, err
}

func (r MembershipRepository) ListRoomsFor(userID string) ([]domain.RoomID, error) {
	var rooms []domain.RoomID
	prefix := []byte(fmt.Sprintf("member:%s:", userID))
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			rooms = append(rooms, domain.RoomID(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r MembershipRepository) ListMembers(room domain.RoomID) ([]string, error) {
	var users []string
	prefix := []byte(fmt.Sprintf("roommember:%s:", room))
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			users = append(users, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
