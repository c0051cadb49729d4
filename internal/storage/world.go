package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/world"
	"github.com/redis/go-redis/v9"
)

// World operations (Redis-backed)

func (r *RedisStorage) SaveWorld(ctx context.Context, w *world.World) error {
	w.UpdatedAt = time.Now()

	data, err := json.Marshal(w.Snapshot())
	if err != nil {
		r.logger.Error("Failed to marshal world", "uuid", w.ID, "error", err)
		return fmt.Errorf("failed to marshal world: %w", err)
	}

	key := worldKeyPrefix + w.ID.String()
	if err := r.client.Set(ctx, key, data, worldTTL).Err(); err != nil {
		r.logger.Error("Failed to save world", "uuid", w.ID, "error", err)
		return fmt.Errorf("failed to save world: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadWorld(ctx context.Context, id uuid.UUID) (*world.World, error) {
	key := worldKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("World not found", "uuid", id)
			return nil, fmt.Errorf("world %s: %w", id, ErrNotFound)
		}
		r.logger.Error("Failed to load world", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load world: %w", err)
	}

	w, err := world.Parse(data)
	if err != nil {
		r.logger.Error("Failed to decode world", "uuid", id, "error", err)
		return nil, err
	}
	return w, nil
}

// DeleteWorld removes the world and its chat log
func (r *RedisStorage) DeleteWorld(ctx context.Context, id uuid.UUID) error {
	cmd := r.client.Del(ctx, worldKeyPrefix+id.String(), chatLogKeyPrefix+id.String())
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to delete world", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete world: %w", err)
	}
	return nil
}
