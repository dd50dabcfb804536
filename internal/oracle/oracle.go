// Package oracle is the boundary to the language-model collaborator. The
// engine treats it as an opaque prompt-in, text-out call; structured action
// payloads come back as JSON and are parsed here into a closed action set.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/retry"
)

// ErrModelInvocation is wrapped around failures that survive the retry budget.
var ErrModelInvocation = errors.New("model invocation failed")

// Oracle accepts a prompt and an execution mode and returns free text or a
// JSON action payload. Implementations must honor ctx cancellation.
type Oracle interface {
	Invoke(ctx context.Context, prompt, mode string) (string, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, prompt, mode string) (string, error)

func (f Func) Invoke(ctx context.Context, prompt, mode string) (string, error) {
	return f(ctx, prompt, mode)
}

// Retrying wraps an Oracle with the shared fixed-delay retry budget. After
// the budget is exhausted the last error is wrapped in ErrModelInvocation and
// tagged for the fault envelope.
type Retrying struct {
	Inner    Oracle
	Attempts int
	Delay    time.Duration
}

func NewRetrying(inner Oracle, attempts int, delay time.Duration) *Retrying {
	if attempts < 1 {
		attempts = retry.DefaultAttempts
	}
	if delay <= 0 {
		delay = retry.DefaultDelay
	}
	return &Retrying{Inner: inner, Attempts: attempts, Delay: delay}
}

func (r *Retrying) Invoke(ctx context.Context, prompt, mode string) (string, error) {
	out, err := retry.Do(ctx, r.Attempts, r.Delay, func(ctx context.Context) (string, error) {
		return r.Inner.Invoke(ctx, prompt, mode)
	})
	if err != nil {
		return "", &api.Fault{
			Type: api.FaultModelInvocation,
			Err:  fmt.Errorf("%w: %v", ErrModelInvocation, err),
		}
	}
	return out, nil
}

// ActionType is the closed set of structured actions the oracle may return.
type ActionType string

const (
	ActionAnswerQuestion ActionType = "answer_question"
	ActionCreateTasks    ActionType = "create_tasks"
	ActionToolCall       ActionType = "tool_call"
	ActionUpdatePlan     ActionType = "update_plan"
	ActionScanCodebase   ActionType = "scan_codebase"
	ActionProgressUpdate ActionType = "progress_update"
	ActionErrorMessage   ActionType = "error_message"
)

// KnownAction reports whether t is in the closed action set. Dispatch still
// needs an explicit unknown arm: new actions must fail loudly, not no-op.
func KnownAction(t ActionType) bool {
	switch t {
	case ActionAnswerQuestion, ActionCreateTasks, ActionToolCall,
		ActionUpdatePlan, ActionScanCodebase, ActionProgressUpdate,
		ActionErrorMessage:
		return true
	default:
		return false
	}
}

// Action is a parsed structured payload. Only the fields for the named action
// are populated; the rest stay zero.
type Action struct {
	Type      ActionType        `json:"action"`
	Content   string            `json:"content,omitempty"`
	Tool      string            `json:"tool,omitempty"`
	Args      map[string]string `json:"args,omitempty"`
	Tasks     []api.Task        `json:"tasks,omitempty"`
	Plan      *api.ProjectPlan  `json:"plan,omitempty"`
	Path      string            `json:"path,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
}

// ErrNotAction marks output that is not a JSON action payload at all; callers
// treat such output as free text.
var ErrNotAction = errors.New("output is not an action payload")

// ParseAction decodes raw oracle output into an Action. Output that does not
// look like a JSON object is ErrNotAction; a JSON object that fails to decode
// or carries no action tag is a malformed-payload error. Callers degrade both
// cases to diagnostics, never a crash.
func ParseAction(raw string) (*Action, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrNotAction
	}
	var a Action
	if err := json.Unmarshal([]byte(trimmed), &a); err != nil {
		return nil, fmt.Errorf("malformed action payload: %w", err)
	}
	if a.Type == "" {
		return nil, fmt.Errorf("malformed action payload: missing action tag")
	}
	return &a, nil
}
