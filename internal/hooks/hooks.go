package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrHalt stops a Call dispatch when returned by a handler
var ErrHalt = errors.New("hook halted")

// Handler reacts to a named lifecycle hook
type Handler func(ctx context.Context, payload any) error

type registration struct {
	id   int
	fn   Handler
	once bool
}

// Bus dispatches named lifecycle hooks to registered handlers.
// Handlers run sequentially in registration order.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]registration
	logger   *slog.Logger
}

// NewBus creates an empty hook bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]registration),
		logger:   logger,
	}
}

// On registers fn for the hook and returns its registration id
func (b *Bus) On(name string, fn Handler) int {
	return b.register(name, fn, false)
}

// Once registers fn to run at most one time
func (b *Bus) Once(name string, fn Handler) int {
	return b.register(name, fn, true)
}

func (b *Bus) register(name string, fn Handler, once bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[name] = append(b.handlers[name], registration{id: b.nextID, fn: fn, once: once})
	b.logger.Debug("Hook registered", "hook", name, "hook_id", b.nextID, "once", once)
	return b.nextID
}

// Off removes a registration. It reports whether the id was registered.
func (b *Bus) Off(name string, id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[name]
	for i, r := range regs {
		if r.id == id {
			b.handlers[name] = append(regs[:i:i], regs[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of handlers registered for the hook
func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// snapshot returns the handlers to run and drops once-registrations
func (b *Bus) snapshot(name string) []registration {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[name]
	out := make([]registration, len(regs))
	copy(out, regs)

	kept := regs[:0:0]
	for _, r := range regs {
		if !r.once {
			kept = append(kept, r)
		}
	}
	b.handlers[name] = kept
	return out
}

// CallAll runs every handler for the hook. Handler errors do not stop the
// dispatch; they are logged and returned joined.
func (b *Bus) CallAll(ctx context.Context, name string, payload any) error {
	var errs []error
	for _, r := range b.snapshot(name) {
		if err := r.fn(ctx, payload); err != nil && !errors.Is(err, ErrHalt) {
			b.logger.Error("Hook handler failed", "hook", name, "hook_id", r.id, "error", err)
			errs = append(errs, fmt.Errorf("hook %s handler %d: %w", name, r.id, err))
		}
	}
	return errors.Join(errs...)
}

// Call runs handlers until one returns ErrHalt or fails. It reports whether
// every handler ran.
func (b *Bus) Call(ctx context.Context, name string, payload any) (bool, error) {
	for _, r := range b.snapshot(name) {
		err := r.fn(ctx, payload)
		if errors.Is(err, ErrHalt) {
			b.logger.Debug("Hook halted", "hook", name, "hook_id", r.id)
			return false, nil
		}
		if err != nil {
			b.logger.Error("Hook handler failed", "hook", name, "hook_id", r.id, "error", err)
			return false, fmt.Errorf("hook %s handler %d: %w", name, r.id, err)
		}
	}
	return true, nil
}
