package repositories

import (
	"chat-gateway/domain"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsert_AssignsIDAndTimestamp(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	room := domain.RoomID("general")
	alice := domain.Identity{ID: uuid.NewString(), Username: "alice"}

	msg, err := repo.Insert(room, alice, "hello", "", "", "en")
	req.NoError(err)
	req.NotEqual(uuid.Nil, msg.ID)
	req.False(msg.CreatedAt.IsZero())
	req.Equal(alice.ID, msg.SenderID)
	req.Equal("alice", msg.SenderName)
	req.False(msg.Read)
}

func TestList_NewestFirst(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	room := domain.RoomID("general")
	alice := domain.Identity{ID: uuid.NewString(), Username: "alice"}

	var inserted []domain.Message
	for _, text := range []string{"first", "second", "third"} {
		msg, err := repo.Insert(room, alice, text, "", "", "")
		req.NoError(err)
		inserted = append(inserted, msg)
	}

	fetched, _, err := repo.List(room, nil)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal("third", fetched[0].Text)
	req.Equal("first", fetched[2].Text)
	req.Equal(inserted[2].ID, fetched[0].ID)
}

func TestList_CursorPagination(t *testing.T) {
	req := require.New(t)
	limit := 2
	repo := NewMessageRepository(openTestDB(t), slog.Default(), &limit)
	room := domain.RoomID("general")
	alice := domain.Identity{ID: uuid.NewString(), Username: "alice"}

	for _, text := range []string{"first", "second", "third"} {
		_, err := repo.Insert(room, alice, text, "", "", "")
		req.NoError(err)
	}

	page1, cursor, err := repo.List(room, nil)
	req.NoError(err)
	req.Len(page1, 2)
	req.NotNil(cursor)

	page2, _, err := repo.List(room, cursor)
	req.NoError(err)
	req.Len(page2, 1)
	req.Equal("first", page2[0].Text)
}

func TestList_RoomsAreIsolated(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	alice := domain.Identity{ID: uuid.NewString(), Username: "alice"}

	_, err := repo.Insert(domain.RoomID("general"), alice, "in general", "", "", "")
	req.NoError(err)
	_, err = repo.Insert(domain.RoomID("random"), alice, "in random", "", "", "")
	req.NoError(err)

	fetched, _, err := repo.List(domain.RoomID("general"), nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("in general", fetched[0].Text)
}

func TestMarkRoomRead_SkipsReaderOwnMessages(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	room := domain.RoomID("general")
	alice := domain.Identity{ID: uuid.NewString(), Username: "alice"}
	bob := domain.Identity{ID: uuid.NewString(), Username: "bob"}

	// Given two unread messages from Alice and one from Bob himself
	_, err := repo.Insert(room, alice, "hi bob", "", "", "")
	req.NoError(err)
	_, err = repo.Insert(room, alice, "you there?", "", "", "")
	req.NoError(err)
	_, err = repo.Insert(room, bob, "yes", "", "", "")
	req.NoError(err)

	// When Bob marks the room as read
	count, err := repo.MarkRoomRead(room, bob.ID)
	req.NoError(err)
	req.Equal(2, count)

	// Then only Alice's rows are flipped
	fetched, _, err := repo.List(room, nil)
	req.NoError(err)
	read := lo.Filter(fetched, func(m domain.Message, _ int) bool { return m.Read })
	req.Len(read, 2)
	for _, m := range read {
		req.Equal(alice.ID, m.SenderID)
	}
}

func TestMarkRoomRead_Idempotent(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	room := domain.RoomID("general")
	alice := domain.Identity{ID: uuid.NewString(), Username: "alice"}

	_, err := repo.Insert(room, alice, "hi", "", "", "")
	req.NoError(err)

	count, err := repo.MarkRoomRead(room, "someone-else")
	req.NoError(err)
	req.Equal(1, count)

	// Second pass touches nothing
	count, err = repo.MarkRoomRead(room, "someone-else")
	req.NoError(err)
	req.Zero(count)
}
