// Package queue runs the per-role worker pools. Each agent role owns a
// bounded channel and a fixed number of workers; a worker claims the record
// as in_progress, executes the role handler, and reports exactly one terminal
// result back to the tracker, wrapping any fault into the standard envelope.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jutt313/code-xi/internal/api"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue closed")

// DefaultBuffer is the per-role channel capacity.
const DefaultBuffer = 64

// Handler executes one dispatched task for a role and returns the output to
// record. A returned *api.Fault keeps its type tag in the stored envelope;
// any other error is recorded as a worker execution fault.
type Handler interface {
	Handle(ctx context.Context, payload api.DispatchPayload) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload api.DispatchPayload) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, payload api.DispatchPayload) (string, error) {
	return f(ctx, payload)
}

// Store is the claim surface workers transition records through.
type Store interface {
	MarkTaskInProgress(projectID int64, taskID string) error
}

// Reporter receives exactly one terminal result per executed task.
type Reporter interface {
	ProcessTaskResult(ctx context.Context, projectID int64, taskID string, status api.TaskStatus, output string) error
}

// Pool owns every role queue. Concurrency maps role to worker count; roles
// absent from the map get one worker.
type Pool struct {
	store       Store
	reporter    Reporter
	handlers    map[api.AgentRole]Handler
	concurrency map[api.AgentRole]int
	queues      map[api.AgentRole]chan api.DispatchPayload

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

func New(store Store, reporter Reporter, handlers map[api.AgentRole]Handler, concurrency map[api.AgentRole]int) *Pool {
	p := &Pool{
		store:       store,
		reporter:    reporter,
		handlers:    handlers,
		concurrency: concurrency,
		queues:      make(map[api.AgentRole]chan api.DispatchPayload, len(handlers)),
		done:        make(chan struct{}),
	}
	for role := range handlers {
		p.queues[role] = make(chan api.DispatchPayload, DefaultBuffer)
	}
	return p
}

// Start launches the workers. ctx cancellation stops workers after their
// current task; Shutdown does the same explicitly.
func (p *Pool) Start(ctx context.Context) {
	for role, ch := range p.queues {
		n := p.concurrency[role]
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			p.wg.Add(1)
			go p.worker(ctx, role, ch)
		}
	}
}

// Enqueue hands a payload to the role's queue, blocking while the buffer is
// full. Unknown roles are rejected so a bad plan row cannot park a payload on
// a queue nobody drains.
func (p *Pool) Enqueue(role api.AgentRole, payload api.DispatchPayload) error {
	ch, ok := p.queues[role]
	if !ok {
		return fmt.Errorf("no worker pool for role %q", role)
	}
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case ch <- payload:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// Shutdown stops intake and waits for in-flight tasks to finish.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, role api.AgentRole, ch <-chan api.DispatchPayload) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case payload := <-ch:
			p.run(ctx, role, payload)
		}
	}
}

// run executes one payload end to end. Exactly one report reaches the
// tracker per execution: either the handler outcome or, if the handler
// panics, a worker execution fault.
func (p *Pool) run(ctx context.Context, role api.AgentRole, payload api.DispatchPayload) {
	tr := otel.Tracer("codexi")
	ctx, span := tr.Start(
		ctx,
		"worker.task",
		trace.WithNewRoot(),
		trace.WithAttributes(
			attribute.String("task.id", payload.TaskID),
			attribute.Int64("project.id", payload.ProjectID),
			attribute.String("agent.role", string(role)),
		),
	)
	defer span.End()

	if err := p.store.MarkTaskInProgress(payload.ProjectID, payload.TaskID); err != nil {
		// record already moved by another actor; do not execute or report
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("worker %s: task %s not claimable: %v", role, payload.TaskID, err)
		return
	}
	span.AddEvent("task.started")

	reported := false
	report := func(status api.TaskStatus, output string) {
		if reported {
			return
		}
		reported = true
		if err := p.reporter.ProcessTaskResult(ctx, payload.ProjectID, payload.TaskID, status, output); err != nil {
			log.Printf("worker %s: report result for task %s: %v", role, payload.TaskID, err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("worker panic: %v", r)
			span.AddEvent("task.panicked")
			span.SetStatus(codes.Error, msg)
			log.Printf("worker %s: task %s panicked: %v", role, payload.TaskID, r)
			report(api.TaskFailed, api.EncodeFault(api.FaultWorkerExecution, msg, string(role)))
		}
	}()

	output, err := p.handlers[role].Handle(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.AddEvent("task.failed")

		var fault *api.Fault
		if errors.As(err, &fault) {
			details := fault.Details
			if details == "" {
				details = string(role)
			}
			report(api.TaskFailed, api.EncodeFault(fault.Type, err.Error(), details))
		} else {
			report(api.TaskFailed, api.EncodeFault(api.FaultWorkerExecution, err.Error(), string(role)))
		}
		return
	}

	span.AddEvent("task.completed")
	span.SetStatus(codes.Ok, "")
	report(api.TaskCompleted, output)
}
