// Package agents implements the per-role task handlers the worker pools run.
// Every role follows the same shape: recall project memory, prompt the oracle
// with the role persona, execute any requested tool call, record the outcome.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/memory"
	"github.com/jutt313/code-xi/internal/oracle"
	"github.com/jutt313/code-xi/internal/queue"
	"github.com/jutt313/code-xi/internal/tools"
)

// personas is the system framing per role, prepended to every task prompt.
var personas = map[api.AgentRole]string{
	api.RoleFullStack:          "You are a full-stack engineer. Implement features end to end, frontend through database.",
	api.RoleSolutionsArchitect: "You are a solutions architect. Produce designs, component boundaries, and technology decisions.",
	api.RoleDevOps:             "You are a DevOps engineer. Handle builds, deployment, infrastructure, and CI pipelines.",
	api.RoleSecurity:           "You are a security engineer. Review and implement authentication, authorization, and hardening.",
	api.RoleQA:                 "You are a QA engineer. Write and run tests, report defects with reproduction steps.",
	api.RoleDocumentation:      "You are a documentation specialist. Produce clear user and developer documentation.",
	api.RolePerformance:        "You are a performance engineer. Profile, benchmark, and optimize the system.",
}

// Agent handles dispatched tasks for one role.
type Agent struct {
	role     api.AgentRole
	oracle   oracle.Oracle
	memory   *memory.Service
	registry *tools.Registry
}

func New(role api.AgentRole, o oracle.Oracle, mem *memory.Service, reg *tools.Registry) *Agent {
	return &Agent{role: role, oracle: o, memory: mem, registry: reg}
}

// NewAll builds one handler per registered role, sharing the oracle, memory
// service and tool registry.
func NewAll(o oracle.Oracle, mem *memory.Service, reg *tools.Registry) map[api.AgentRole]queue.Handler {
	handlers := make(map[api.AgentRole]queue.Handler, len(api.Roles))
	for _, role := range api.Roles {
		handlers[role] = New(role, o, mem, reg)
	}
	return handlers
}

// Handle executes one dispatched task. Oracle failures keep their model
// invocation fault tag; everything else that goes wrong is a task execution
// fault. The worker pool converts either into the stored envelope.
func (a *Agent) Handle(ctx context.Context, payload api.DispatchPayload) (string, error) {
	prompt := a.buildPrompt(payload)

	out, err := a.oracle.Invoke(ctx, prompt, payload.Mode)
	if err != nil {
		var fault *api.Fault
		if errors.As(err, &fault) {
			return "", err
		}
		return "", &api.Fault{Type: api.FaultTaskExecution, Details: payload.TaskID, Err: err}
	}

	result, err := a.interpret(ctx, out)
	if err != nil {
		return "", err
	}

	if err := a.memory.Save(a.role, payload.ProjectID, payload.TaskID, summarize(result)); err != nil {
		// memory is advisory; losing an entry must not fail the task
		log.Printf("agent %s: save memory for task %s: %v", a.role, payload.TaskID, err)
	}
	return result, nil
}

func (a *Agent) buildPrompt(payload api.DispatchPayload) string {
	var b strings.Builder
	b.WriteString(personas[a.role])
	b.WriteString("\n\n")

	entries, err := a.memory.Recall(payload.ProjectID, payload.Task, 5)
	if err != nil {
		log.Printf("agent %s: recall memory for project %d: %v", a.role, payload.ProjectID, err)
	}
	if len(entries) > 0 {
		b.WriteString("Relevant prior decisions:\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", e.Agent, e.Topic, e.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Available tools: ")
	b.WriteString(strings.Join(a.registry.Names(), ", "))
	b.WriteString("\n\nTask: ")
	b.WriteString(payload.Task)
	return b.String()
}

// interpret resolves oracle output: free text passes through, a tool_call
// action runs the capability, any other or malformed payload is a task fault.
func (a *Agent) interpret(ctx context.Context, out string) (string, error) {
	action, err := oracle.ParseAction(out)
	if errors.Is(err, oracle.ErrNotAction) {
		return out, nil
	}
	if err != nil {
		return "", &api.Fault{Type: api.FaultTaskExecution, Err: err}
	}

	if action.Type != oracle.ActionToolCall {
		return "", &api.Fault{
			Type: api.FaultTaskExecution,
			Err:  fmt.Errorf("unexpected action %q in task output", action.Type),
		}
	}

	result, err := a.registry.Invoke(ctx, action.Tool, action.Args)
	if err != nil {
		faultType := api.FaultToolExecution
		var notFound *tools.FileNotFoundError
		if errors.As(err, &notFound) {
			faultType = api.FaultFileNotFound
		}
		return "", &api.Fault{Type: faultType, Details: action.Tool, Err: err}
	}
	if action.Content != "" {
		return action.Content + "\n" + result, nil
	}
	return result, nil
}

// summarize truncates a result for the memory log.
func summarize(s string) string {
	const max = 500
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
