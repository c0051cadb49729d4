package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/effect-cards/internal/effectcards"
	"github.com/jwebster45206/effect-cards/internal/services/events"
	"github.com/jwebster45206/effect-cards/pkg/chat"
	"github.com/jwebster45206/effect-cards/pkg/world"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running effect-cards API and worker
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // how long to wait for a queued request to finish
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	WorldOverride     string // If set, overrides the world file for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           15 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	if suite.WorldFile == "" {
		return TestSuite{}, fmt.Errorf("test file %s has no world_file", filename)
	}
	for i, step := range suite.Steps {
		if step.Action != ActionTarget && step.Action != ActionUse {
			return TestSuite{}, fmt.Errorf("step %d in %s has unknown action %q", i, filename, step.Action)
		}
	}

	return suite, nil
}

// RunSuite executes a complete test suite against a freshly created world.
// The world is deleted afterwards.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	worldFile := suite.WorldFile
	if r.WorldOverride != "" {
		worldFile = r.WorldOverride
	}

	w, err := r.CreateWorld(ctx, worldFile)
	if err != nil {
		result.Error = fmt.Errorf("failed to create world: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.World = w.ID
	defer func() {
		if err := r.DeleteWorld(context.Background(), w.ID); err != nil {
			r.Logger("    Warning: failed to delete world %s: %v", w.ID, err)
		}
	}()

	gm := firstGM(w)
	if gm == "" {
		result.Error = fmt.Errorf("world %s has no gamemaster to read cards as", worldFile)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		name := stepName(step)
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), name)

		stepResult := r.runStep(ctx, w.ID, gm, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, worldID uuid.UUID, gm string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: stepName(step)}

	var err error
	switch step.Action {
	case ActionTarget:
		err = r.runTarget(ctx, worldID, step)
	case ActionUse:
		err = r.runUse(ctx, worldID, gm, step)
	default:
		err = fmt.Errorf("unknown action %q", step.Action)
	}

	result.Error = err
	result.Success = err == nil
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) runTarget(ctx context.Context, worldID uuid.UUID, step TestStep) error {
	want := step.Expectations.HTTPStatus
	if want == 0 {
		want = http.StatusOK
	}
	return r.SetTargets(ctx, worldID, step.User, step.Tokens, want)
}

func (r *Runner) runUse(ctx context.Context, worldID uuid.UUID, gm string, step TestStep) error {
	exp := step.Expectations

	before, err := r.ChatLog(ctx, worldID, gm)
	if err != nil {
		return fmt.Errorf("failed to read chat log: %w", err)
	}

	// Subscribe before queueing so the outcome event cannot be missed
	stream, err := r.OpenEvents(ctx, worldID)
	if err != nil {
		return err
	}
	defer stream.Close()

	want := exp.HTTPStatus
	if want == 0 {
		want = http.StatusAccepted
	}
	requestID, err := r.UseItem(ctx, worldID, step.User, step.Item, want)
	if err != nil {
		return err
	}
	if want != http.StatusAccepted {
		return nil
	}

	outcome, err := r.waitForOutcome(ctx, stream, requestID)
	if err != nil {
		return err
	}
	if exp.Outcome != "" && outcome != exp.Outcome {
		return fmt.Errorf("expected outcome %s, got %s", exp.Outcome, outcome)
	}

	if err := r.checkCard(ctx, worldID, gm, before, exp); err != nil {
		return err
	}
	return r.checkItem(ctx, worldID, step.Item, exp)
}

// waitForOutcome blocks until the worker reports the request as completed or failed
func (r *Runner) waitForOutcome(ctx context.Context, stream *EventStream, requestID string) (string, error) {
	timer := time.NewTimer(r.Timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-stream.Events:
			if !ok {
				return "", errors.New("event stream closed before the request finished")
			}
			if ev.RequestID != requestID {
				continue
			}
			switch events.EventType(ev.Type) {
			case events.EventTypeRequestCompleted:
				return "completed", nil
			case events.EventTypeRequestFailed:
				return "failed", nil
			}
		case <-timer.C:
			return "", fmt.Errorf("timeout waiting for request %s", requestID)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (r *Runner) checkCard(ctx context.Context, worldID uuid.UUID, gm string, before []*chat.Message, exp Expectations) error {
	if exp.Card == nil && len(exp.CardTargets) == 0 && len(exp.CardEffects) == 0 && exp.CardTokenID == nil && len(exp.HiddenFrom) == 0 {
		return nil
	}

	after, err := r.ChatLog(ctx, worldID, gm)
	if err != nil {
		return fmt.Errorf("failed to read chat log: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(before))
	for _, m := range before {
		seen[m.ID] = true
	}
	var cards []*chat.Message
	var flags []effectcards.CardFlags
	for _, m := range after {
		if seen[m.ID] {
			continue
		}
		var f effectcards.CardFlags
		ok, err := m.GetFlag(effectcards.ModuleName, &f)
		if err != nil {
			return fmt.Errorf("failed to read card flags on message %s: %w", m.ID, err)
		}
		if ok && f.IsEffectListCard {
			cards = append(cards, m)
			flags = append(flags, f)
		}
	}

	wantCard := exp.Card == nil || *exp.Card
	if !wantCard {
		if len(cards) != 0 {
			return fmt.Errorf("expected no effect card, got %d", len(cards))
		}
		return nil
	}
	if len(cards) != 1 {
		return fmt.Errorf("expected one effect card, got %d", len(cards))
	}
	card, f := cards[0], flags[0]

	if exp.CardTargets != nil && !slices.Equal(f.TargetedTokenIDs, exp.CardTargets) {
		return fmt.Errorf("expected card targets %v, got %v", exp.CardTargets, f.TargetedTokenIDs)
	}
	if exp.CardEffects != nil {
		ids := make([]string, 0, len(f.EffectData))
		for _, e := range f.EffectData {
			ids = append(ids, e.ID)
		}
		if !slices.Equal(ids, exp.CardEffects) {
			return fmt.Errorf("expected card effects %v, got %v", exp.CardEffects, ids)
		}
	}
	if exp.CardTokenID != nil {
		got := ""
		if f.SourceActor.TokenID != nil {
			got = *f.SourceActor.TokenID
		}
		if got != *exp.CardTokenID {
			return fmt.Errorf("expected card source token %q, got %q", *exp.CardTokenID, got)
		}
	}

	for _, userID := range exp.HiddenFrom {
		msgs, err := r.ChatLog(ctx, worldID, userID)
		if err != nil {
			return fmt.Errorf("failed to read chat log as %s: %w", userID, err)
		}
		for _, m := range msgs {
			if m.ID != card.ID {
				continue
			}
			if m.Content != "" || len(m.Flags) != 0 {
				return fmt.Errorf("effect card content is visible to %s", userID)
			}
		}
	}
	return nil
}

func (r *Runner) checkItem(ctx context.Context, worldID uuid.UUID, itemID string, exp Expectations) error {
	if exp.ItemDeleted == nil && exp.UsesLeft == nil {
		return nil
	}

	w, err := r.GetWorld(ctx, worldID)
	if err != nil {
		return fmt.Errorf("failed to read world: %w", err)
	}
	it, found := w.Item(itemID)

	if exp.ItemDeleted != nil && found == *exp.ItemDeleted {
		if found {
			return fmt.Errorf("expected item %s to be deleted", itemID)
		}
		return fmt.Errorf("expected item %s to remain", itemID)
	}
	if exp.UsesLeft != nil {
		if !found {
			return fmt.Errorf("item %s not found", itemID)
		}
		if it.Uses == nil {
			return fmt.Errorf("item %s has no limited uses", itemID)
		}
		if it.Uses.Value != *exp.UsesLeft {
			return fmt.Errorf("expected %d uses left on %s, got %d", *exp.UsesLeft, itemID, it.Uses.Value)
		}
	}
	return nil
}

func firstGM(w *world.World) string {
	for _, u := range w.Users {
		if u.IsGM() {
			return u.ID
		}
	}
	return ""
}

func stepName(step TestStep) string {
	if step.Name != "" {
		return step.Name
	}
	if step.Action == ActionTarget {
		return fmt.Sprintf("%s targets %v", step.User, step.Tokens)
	}
	return fmt.Sprintf("%s uses %s", step.User, step.Item)
}
