package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued      EventType = "request.queued"
	EventTypeRequestProcessing  EventType = "request.processing"
	EventTypeRequestCompleted   EventType = "request.completed"
	EventTypeRequestFailed      EventType = "request.failed"
	EventTypeChatMessageCreated EventType = "chat.message_created"
	EventTypeWorldUpdated       EventType = "world.updated"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	WorldID   string         `json:"world_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel returns the pub/sub channel carrying a world's events
func Channel(worldID uuid.UUID) string {
	return "world-events:" + worldID.String()
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, worldID uuid.UUID, requestID string, requestType string) error {
	event := Event{
		Type:      EventTypeRequestQueued,
		RequestID: requestID,
		WorldID:   worldID.String(),
		Data: map[string]any{
			"status": "queued",
			"type":   requestType,
		},
	}
	return b.publishToWorld(ctx, worldID, event)
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, worldID uuid.UUID, requestID string, requestType string) error {
	event := Event{
		Type:      EventTypeRequestProcessing,
		RequestID: requestID,
		WorldID:   worldID.String(),
		Data: map[string]any{
			"status": "processing",
			"type":   requestType,
		},
	}
	return b.publishToWorld(ctx, worldID, event)
}

// PublishRequestCompleted publishes a request.completed event
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, worldID uuid.UUID, requestID string, result map[string]any) error {
	event := Event{
		Type:      EventTypeRequestCompleted,
		RequestID: requestID,
		WorldID:   worldID.String(),
		Data: map[string]any{
			"status": "completed",
			"result": result,
		},
	}
	return b.publishToWorld(ctx, worldID, event)
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, worldID uuid.UUID, requestID string, errorMsg string) error {
	event := Event{
		Type:      EventTypeRequestFailed,
		RequestID: requestID,
		WorldID:   worldID.String(),
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	}
	return b.publishToWorld(ctx, worldID, event)
}

// PublishChatMessageCreated publishes a chat.message_created event. Only ids
// are sent; clients fetch the log to see the message as their user.
func (b *Broadcaster) PublishChatMessageCreated(ctx context.Context, worldID uuid.UUID, messageID uuid.UUID, userID string) error {
	event := Event{
		Type:    EventTypeChatMessageCreated,
		WorldID: worldID.String(),
		Data: map[string]any{
			"message_id": messageID.String(),
			"user_id":    userID,
		},
	}
	return b.publishToWorld(ctx, worldID, event)
}

// PublishWorldUpdated publishes a world.updated event
func (b *Broadcaster) PublishWorldUpdated(ctx context.Context, worldID uuid.UUID, reason string) error {
	event := Event{
		Type:    EventTypeWorldUpdated,
		WorldID: worldID.String(),
		Data: map[string]any{
			"reason": reason,
		},
	}
	return b.publishToWorld(ctx, worldID, event)
}

// publishToWorld publishes an event to the world-specific channel
func (b *Broadcaster) publishToWorld(ctx context.Context, worldID uuid.UUID, event Event) error {
	channel := Channel(worldID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
