package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
)

// Chat log operations (Redis-backed)

// AppendChatMessage pushes the message onto the world's chat log and trims
// the log to the newest maxChatLog entries
func (r *RedisStorage) AppendChatMessage(ctx context.Context, msg *chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	key := chatLogKeyPrefix + msg.WorldID.String()
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxChatLog, -1)
	pipe.Expire(ctx, key, worldTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to append chat message", "world_id", msg.WorldID, "message_id", msg.ID, "error", err)
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// ListChatMessages returns up to limit of the newest messages, oldest first.
// A limit of zero or less returns the whole log.
func (r *RedisStorage) ListChatMessages(ctx context.Context, worldID uuid.UUID, limit int) ([]*chat.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, chatLogKeyPrefix+worldID.String(), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	msgs := make([]*chat.Message, 0, len(raw))
	for _, s := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			r.logger.Warn("Skipping malformed chat message", "world_id", worldID, "error", err)
			continue
		}
		msgs = append(msgs, &msg)
	}
	return msgs, nil
}
