package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

// ErrNotFound is returned when a world, world file or chat log does not exist
var ErrNotFound = errors.New("not found")

// Storage defines a unified interface for all storage operations.
// Live worlds and chat logs are kept in Redis, world definitions are
// loaded from the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// World operations (Redis-backed)
	SaveWorld(ctx context.Context, w *world.World) error
	LoadWorld(ctx context.Context, id uuid.UUID) (*world.World, error)
	DeleteWorld(ctx context.Context, id uuid.UUID) error

	// World definition files (filesystem-backed)
	// ListWorldFiles maps world names to file names.
	ListWorldFiles(ctx context.Context) (map[string]string, error)
	GetWorldFile(ctx context.Context, filename string) (*world.World, error)

	// Chat log operations (Redis-backed). Messages are returned oldest first.
	AppendChatMessage(ctx context.Context, msg *chat.Message) error
	ListChatMessages(ctx context.Context, worldID uuid.UUID, limit int) ([]*chat.Message, error)
}
