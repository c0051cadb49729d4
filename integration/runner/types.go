package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions
const (
	ActionTarget = "target"
	ActionUse    = "use"
)

// TestSuite defines a complete integration test scenario.
// Each suite runs against a fresh world created from WorldFile.
type TestSuite struct {
	Name      string     `json:"name"`
	WorldFile string     `json:"world_file"`
	Steps     []TestStep `json:"steps"`
}

// TestStep is one action taken by a user and its expected outcome
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`           // "target" or "use"
	User         string       `json:"user"`             // acting user id
	Tokens       []string     `json:"tokens,omitempty"` // for "target"
	Item         string       `json:"item,omitempty"`   // for "use"
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// HTTPStatus is the API status for the step; 0 means the success status
	HTTPStatus int `json:"http_status,omitempty"`

	// Request outcome reported on the event stream: "completed" or "failed"
	Outcome string `json:"outcome,omitempty"`

	// Card checks, made against the chat log as the first GM sees it.
	// Card false means no new effect card was posted.
	Card        *bool    `json:"card,omitempty"`
	CardTargets []string `json:"card_targets,omitempty"` // exact, in order
	CardEffects []string `json:"card_effects,omitempty"` // effect ids, in order
	CardTokenID *string  `json:"card_token_id,omitempty"`
	// HiddenFrom lists users that must see the card without its content
	HiddenFrom []string `json:"hidden_from,omitempty"`

	// Item state after a use
	ItemDeleted *bool `json:"item_deleted,omitempty"`
	UsesLeft    *int  `json:"uses_left,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	World    uuid.UUID // ID of the world used for this test
}
