package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/effect-cards/internal/effectcards"
	"github.com/jwebster45206/effect-cards/internal/hooks"
	"github.com/jwebster45206/effect-cards/pkg/queue"
	"github.com/jwebster45206/effect-cards/pkg/storage"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

var (
	ErrUnknownUser = errors.New("user is not part of the world")
	ErrUnknownItem = errors.New("item not found in world")
	ErrDepleted    = errors.New("item has no uses remaining")
)

// ItemUseResult describes the outcome of an item use
type ItemUseResult struct {
	ItemID      string `json:"item_id"`
	ItemDeleted bool   `json:"item_deleted"`
	UsesLeft    *int   `json:"uses_left,omitempty"`
}

// ItemProcessor applies item-use requests to stored worlds
type ItemProcessor struct {
	storage     storage.Storage
	chat        effectcards.MessageCreator
	renderer    effectcards.Renderer
	localizer   effectcards.Localizer
	logger      *slog.Logger
	moduleDebug bool
}

// NewItemProcessor creates a new item processor
func NewItemProcessor(
	storage storage.Storage,
	chat effectcards.MessageCreator,
	renderer effectcards.Renderer,
	localizer effectcards.Localizer,
	logger *slog.Logger,
	moduleDebug bool,
) *ItemProcessor {
	return &ItemProcessor{
		storage:     storage,
		chat:        chat,
		renderer:    renderer,
		localizer:   localizer,
		logger:      logger,
		moduleDebug: moduleDebug,
	}
}

// ProcessItemUse raises the system's item-used hook for the request's user
// and then spends one use of the item. The world is saved even when a hook
// handler fails; the handler error is returned afterwards.
func (p *ItemProcessor) ProcessItemUse(ctx context.Context, req *queue.Request) (*ItemUseResult, error) {
	w, err := p.storage.LoadWorld(ctx, req.WorldID)
	if err != nil {
		return nil, fmt.Errorf("failed to load world: %w", err)
	}

	if _, ok := w.User(req.UserID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, req.UserID)
	}
	it, ok := w.Item(req.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, req.ItemID)
	}
	if it.Depleted() {
		return nil, fmt.Errorf("%w: %s", ErrDepleted, req.ItemID)
	}

	log := p.logger.With("world_id", w.ID, "request_id", req.RequestID)

	bus := hooks.NewBus(log)
	effectcards.New(w, p.renderer, p.chat, p.localizer, log, p.moduleDebug).Init(bus)

	hook := effectcards.UseItemHook(w.System())
	log.Debug("Dispatching hook", "hook", hook, "item", it.UUID(), "user_id", req.UserID)
	hookErr := bus.CallAll(world.WithUser(ctx, req.UserID), hook, it)

	deleted, err := w.ConsumeItem(it.ID)
	if err != nil {
		return nil, errors.Join(hookErr, fmt.Errorf("failed to consume item: %w", err))
	}
	if err := p.storage.SaveWorld(ctx, w); err != nil {
		return nil, errors.Join(hookErr, fmt.Errorf("failed to save world: %w", err))
	}

	result := &ItemUseResult{ItemID: it.ID, ItemDeleted: deleted}
	if it.Uses != nil && it.Uses.Max > 0 && !deleted {
		left := it.Uses.Value
		result.UsesLeft = &left
	}

	if hookErr != nil {
		return result, fmt.Errorf("item use hook failed: %w", hookErr)
	}
	return result, nil
}
