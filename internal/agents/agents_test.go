package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/memory"
	"github.com/jutt313/code-xi/internal/oracle"
	"github.com/jutt313/code-xi/internal/tools"
)

type memRows struct {
	rows []string
}

func (m *memRows) SaveMemory(agentType api.AgentRole, projectID int64, contextJSON string) error {
	m.rows = append([]string{contextJSON}, m.rows...)
	return nil
}

func (m *memRows) ListMemories(projectID int64, limit int) ([]string, error) {
	if limit > 0 && limit < len(m.rows) {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}

func newTestAgent(t *testing.T, role api.AgentRole, o oracle.Oracle) (*Agent, *memRows) {
	t.Helper()
	rows := &memRows{}
	reg := tools.NewRegistry()
	tools.RegisterFoundational(reg, &tools.RealCommandRunner{}, t.TempDir())
	return New(role, o, memory.New(rows), reg), rows
}

func payload() api.DispatchPayload {
	return api.DispatchPayload{ProjectID: 1, TaskID: "TASK_1", Task: "implement login", Mode: "standard"}
}

func TestHandleFreeTextResult(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		return "Implemented the login form with validation.", nil
	})
	a, rows := newTestAgent(t, api.RoleFullStack, o)

	out, err := a.Handle(context.Background(), payload())
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(out, "login form") {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(rows.rows) != 1 {
		t.Fatalf("expected one memory entry, got %d", len(rows.rows))
	}
	var entry memory.Entry
	if err := json.Unmarshal([]byte(rows.rows[0]), &entry); err != nil {
		t.Fatalf("memory entry not json: %v", err)
	}
	if entry.Agent != api.RoleFullStack || entry.Topic != "TASK_1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestHandlePromptCarriesPersonaToolsAndMemory(t *testing.T) {
	var seen string
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		seen = prompt
		return "ok", nil
	})
	a, rows := newTestAgent(t, api.RoleSecurity, o)
	entry, _ := json.Marshal(memory.Entry{Agent: api.RoleFullStack, Topic: "TASK_0", Content: "login uses session cookies"})
	rows.rows = append(rows.rows, string(entry))

	if _, err := a.Handle(context.Background(), payload()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(seen, "security engineer") {
		t.Fatalf("persona missing from prompt: %q", seen)
	}
	if !strings.Contains(seen, "readFile") || !strings.Contains(seen, "writeFile") {
		t.Fatalf("tool names missing from prompt: %q", seen)
	}
	if !strings.Contains(seen, "session cookies") {
		t.Fatalf("recalled memory missing from prompt: %q", seen)
	}
	if !strings.Contains(seen, "implement login") {
		t.Fatalf("task missing from prompt: %q", seen)
	}
}

func TestHandleToolCall(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		return `{"action":"tool_call","tool":"writeFile","args":{"path":"notes.md","content":"hello"},"content":"Wrote the notes file."}`, nil
	})
	a, _ := newTestAgent(t, api.RoleDocumentation, o)

	out, err := a.Handle(context.Background(), payload())
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(out, "Wrote the notes file.") {
		t.Fatalf("action content missing from result: %q", out)
	}
}

func TestHandleKeepsModelInvocationFault(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		return "", &api.Fault{Type: api.FaultModelInvocation, Err: errors.New("rate limited")}
	})
	a, _ := newTestAgent(t, api.RoleQA, o)

	_, err := a.Handle(context.Background(), payload())
	var fault *api.Fault
	if !errors.As(err, &fault) || fault.Type != api.FaultModelInvocation {
		t.Fatalf("expected model invocation fault, got %v", err)
	}
}

func TestHandleWrapsPlainOracleError(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		return "", errors.New("connection reset")
	})
	a, _ := newTestAgent(t, api.RoleQA, o)

	_, err := a.Handle(context.Background(), payload())
	var fault *api.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expected fault, got %v", err)
	}
	if fault.Type != api.FaultTaskExecution || fault.Details != "TASK_1" {
		t.Fatalf("unexpected fault: %+v", fault)
	}
}

func TestHandleMalformedActionIsTaskFault(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		return `{"action":"tool_call","tool": `, nil
	})
	a, _ := newTestAgent(t, api.RoleDevOps, o)

	_, err := a.Handle(context.Background(), payload())
	var fault *api.Fault
	if !errors.As(err, &fault) || fault.Type != api.FaultTaskExecution {
		t.Fatalf("expected task execution fault, got %v", err)
	}
}

func TestHandleRejectsNonToolAction(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		return `{"action":"create_tasks","tasks":[]}`, nil
	})
	a, _ := newTestAgent(t, api.RoleFullStack, o)

	_, err := a.Handle(context.Background(), payload())
	var fault *api.Fault
	if !errors.As(err, &fault) || fault.Type != api.FaultTaskExecution {
		t.Fatalf("expected task execution fault, got %v", err)
	}
}

func TestHandleMissingFileFault(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, prompt, mode string) (string, error) {
		return `{"action":"tool_call","tool":"readFile","args":{"path":"missing.txt"}}`, nil
	})
	a, _ := newTestAgent(t, api.RoleFullStack, o)

	_, err := a.Handle(context.Background(), payload())
	var fault *api.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expected fault, got %v", err)
	}
	if fault.Type != api.FaultFileNotFound || fault.Details != "readFile" {
		t.Fatalf("unexpected fault: %+v", fault)
	}
}
