package hooks

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBus_CallAllOrder(t *testing.T) {
	bus := NewBus(testLogger())
	var calls []string

	bus.On("dnd5e.useItem", func(ctx context.Context, payload any) error {
		calls = append(calls, "first:"+payload.(string))
		return nil
	})
	bus.On("dnd5e.useItem", func(ctx context.Context, payload any) error {
		calls = append(calls, "second:"+payload.(string))
		return nil
	})
	bus.On("other", func(ctx context.Context, payload any) error {
		calls = append(calls, "other")
		return nil
	})

	if err := bus.CallAll(context.Background(), "dnd5e.useItem", "potion"); err != nil {
		t.Fatalf("CallAll() error = %v", err)
	}

	want := []string{"first:potion", "second:potion"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestBus_CallAllJoinsErrors(t *testing.T) {
	bus := NewBus(testLogger())
	boom := errors.New("boom")
	ran := 0

	bus.On("hook", func(ctx context.Context, payload any) error {
		ran++
		return boom
	})
	bus.On("hook", func(ctx context.Context, payload any) error {
		ran++
		return nil
	})

	err := bus.CallAll(context.Background(), "hook", nil)
	if !errors.Is(err, boom) {
		t.Errorf("CallAll() error = %v, want wrapped boom", err)
	}
	if ran != 2 {
		t.Errorf("handlers run = %d, want 2", ran)
	}
}

func TestBus_CallHalts(t *testing.T) {
	bus := NewBus(testLogger())
	ran := 0

	bus.On("hook", func(ctx context.Context, payload any) error {
		ran++
		return ErrHalt
	})
	bus.On("hook", func(ctx context.Context, payload any) error {
		ran++
		return nil
	})

	completed, err := bus.Call(context.Background(), "hook", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if completed {
		t.Error("Call() should report a halted dispatch")
	}
	if ran != 1 {
		t.Errorf("handlers run = %d, want 1", ran)
	}
}

func TestBus_OnceAndOff(t *testing.T) {
	bus := NewBus(testLogger())
	onceRuns, onRuns := 0, 0

	bus.Once("hook", func(ctx context.Context, payload any) error {
		onceRuns++
		return nil
	})
	id := bus.On("hook", func(ctx context.Context, payload any) error {
		onRuns++
		return nil
	})

	if got := bus.Count("hook"); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	ctx := context.Background()
	_ = bus.CallAll(ctx, "hook", nil)
	_ = bus.CallAll(ctx, "hook", nil)

	if onceRuns != 1 {
		t.Errorf("once handler ran %d times, want 1", onceRuns)
	}
	if onRuns != 2 {
		t.Errorf("on handler ran %d times, want 2", onRuns)
	}

	if !bus.Off("hook", id) {
		t.Error("Off() = false, want true")
	}
	if bus.Off("hook", id) {
		t.Error("Off() twice should return false")
	}
	if got := bus.Count("hook"); got != 0 {
		t.Errorf("Count() after Off = %d, want 0", got)
	}
}
