package workers

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"context"
	"log/slog"
)

// IndexWorker drains persisted messages into the full-text index off the
// send path. The channel is fed best-effort: if the indexer lags, messages
// are skipped rather than slowing down fan-out.
type IndexWorker struct {
	index    contract.MessageIndex
	messages chan domain.Message
	log      *slog.Logger
}

func NewIndexWorker(index contract.MessageIndex, messages chan domain.Message, log *slog.Logger) *IndexWorker {
	return &IndexWorker{index: index, messages: messages, log: log}
}

func (w *IndexWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping index worker")
			return nil
		case msg, ok := <-w.messages:
			if !ok {
				return nil
			}
			if err := w.index.Index(msg); err != nil {
				w.log.Error("Failed to index message",
					"message_id", msg.ID,
					"room_id", msg.Room,
					"error", err)
			}
		}
	}
}
