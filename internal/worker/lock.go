package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockTTL = 30 * time.Second

// releaseScript deletes the lock only if the caller still owns it
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// WorldLock serializes work on a world across workers and API processes
type WorldLock struct {
	client *redis.Client
	owner  string
}

// NewWorldLock creates a lock handle whose tokens are prefixed with owner
func NewWorldLock(client *redis.Client, owner string) *WorldLock {
	return &WorldLock{client: client, owner: owner}
}

func lockKey(worldID uuid.UUID) string {
	return "world-lock:" + worldID.String()
}

// Acquire attempts to take the world's lock.
// On success it returns a token unique to this acquisition; pass it to Release.
// Returns false if already locked.
func (l *WorldLock) Acquire(ctx context.Context, worldID uuid.UUID) (string, bool, error) {
	token := l.owner + ":" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(worldID), token, lockTTL).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Release frees the world's lock if it is still held by token
func (l *WorldLock) Release(ctx context.Context, worldID uuid.UUID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{lockKey(worldID)}, token).Err()
}
