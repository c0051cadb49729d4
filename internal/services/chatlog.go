package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/storage"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

// ChatPublisher announces new chat messages to connected clients
type ChatPublisher interface {
	PublishChatMessageCreated(ctx context.Context, worldID uuid.UUID, messageID uuid.UUID, userID string) error
}

// ChatLog creates and reads chat messages for worlds
type ChatLog struct {
	storage   storage.Storage
	publisher ChatPublisher
	logger    *slog.Logger
}

// NewChatLog creates a chat log service. publisher may be nil.
func NewChatLog(store storage.Storage, publisher ChatPublisher, logger *slog.Logger) *ChatLog {
	return &ChatLog{
		storage:   store,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateMessage assigns an id and timestamp, appends the message to the
// world's log and announces it. A failed announcement is only logged; the
// message is already stored.
func (c *ChatLog) CreateMessage(ctx context.Context, msg *chat.Message) (*chat.Message, error) {
	if msg.WorldID == uuid.Nil {
		return nil, errors.New("chat message has no world")
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Whisper == nil {
		msg.Whisper = []string{}
	}

	if err := c.storage.AppendChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store chat message: %w", err)
	}

	c.logger.Debug("Chat message created",
		"world_id", msg.WorldID,
		"message_id", msg.ID,
		"user", msg.User,
		"whisper", msg.Whisper,
		"blind", msg.Blind)

	if c.publisher != nil {
		if err := c.publisher.PublishChatMessageCreated(ctx, msg.WorldID, msg.ID, msg.User); err != nil {
			c.logger.Warn("Failed to announce chat message", "message_id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// Messages returns up to limit of the newest messages as the viewer sees
// them. Whispers not addressed to the viewer are left out and blind
// messages are blanked for non-GMs.
func (c *ChatLog) Messages(ctx context.Context, worldID uuid.UUID, viewer *world.User, limit int) ([]*chat.Message, error) {
	msgs, err := c.storage.ListChatMessages(ctx, worldID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if v, ok := m.ForViewer(viewer.ID, viewer.IsGM()); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
