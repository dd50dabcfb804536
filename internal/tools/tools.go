// Package tools is the named-capability invoker. Capabilities declare their
// parameter names; invocation passes arguments by name, so callers cannot
// silently misorder values.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrToolNotFound is returned by Invoke for an unregistered capability name.
var ErrToolNotFound = errors.New("tool not found")

// ExecutionError is a capability-level failure: a missing file, a failed
// directory creation, a nonzero command exit.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// FileNotFoundError is the ExecutionError subtype for a missing path.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return "file not found: " + e.Path
}

// Tool is one registered capability. Params lists the declared parameter
// names; Required marks which of them must be present at invocation.
type Tool struct {
	Name     string
	Params   []string
	Required []string
	Run      func(ctx context.Context, args map[string]string) (string, error)
}

// Registry maps capability names to tools.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named capability with named arguments. Unknown capability
// names fail with ErrToolNotFound; unknown argument keys and missing required
// arguments fail before the capability runs.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	declared := make(map[string]bool, len(t.Params))
	for _, p := range t.Params {
		declared[p] = true
	}
	for key := range args {
		if !declared[key] {
			return "", &ExecutionError{Tool: name, Err: fmt.Errorf("unknown parameter %q", key)}
		}
	}
	for _, req := range t.Required {
		if _, ok := args[req]; !ok {
			return "", &ExecutionError{Tool: name, Err: fmt.Errorf("missing required parameter %q", req)}
		}
	}
	return t.Run(ctx, args)
}
