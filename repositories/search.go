package repositories

import (
	"chat-gateway/domain"
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

// SearchRepository maintains a full-text index over persisted messages.
// It is fed asynchronously by the index worker, so a lagging index never
// slows down the send path; a message missing from the index is an accepted
// degradation, the badger row stays authoritative.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) SearchRepository {
	return SearchRepository{writer: writer, log: log}
}

func (s SearchRepository) Index(msg domain.Message) error {
	if msg.Text == "" {
		return nil
	}
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("text", msg.Text).StoreValue()).
		AddField(bluge.NewKeywordField("room", string(msg.Room)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", msg.SenderID).StoreValue()).
		AddField(bluge.NewStoredOnlyField("sender_name", []byte(msg.SenderName))).
		AddField(bluge.NewStoredOnlyField("created_at", []byte(msg.CreatedAt.Format(time.RFC3339Nano))))
	return s.writer.Update(doc.ID(), doc)
}

// Search runs a match query over one room's messages and rebuilds lightweight
// message records from the stored fields.
func (s SearchRepository) Search(ctx context.Context, room domain.RoomID, terms string, limit int) ([]domain.Message, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("text")).
		AddMust(bluge.NewTermQuery(string(room)).SetField("room"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []domain.Message
	match, err := iterator.Next()
	for err == nil && match != nil {
		var msg domain.Message
		msg.Room = room
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					msg.ID = id
				}
			case "text":
				msg.Text = string(value)
			case "sender":
				msg.SenderID = string(value)
			case "sender_name":
				msg.SenderName = string(value)
			case "created_at":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					msg.CreatedAt = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, msg)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
