// Package scheduler computes which pending tasks have all dependencies
// satisfied and dispatches them to their role queues. It is the only
// rescheduling trigger in the system: it runs after plan mutations and after
// every task completion (via the result tracker), never on a timer.
package scheduler

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jutt313/code-xi/internal/api"
)

// FailurePolicy decides whether a failed dependency unblocks its dependents.
type FailurePolicy string

const (
	// FailureResolves counts failed tasks as resolved so dependents still
	// dispatch. This avoids deadlocking the graph behind one bad task.
	FailureResolves FailurePolicy = "resolve"
	// FailureBlocks leaves dependents of a failed task undispatched.
	FailureBlocks FailurePolicy = "block"
)

// Store is the ledger surface the scheduler reads and claims through.
type Store interface {
	GetProject(projectID int64) (*api.Project, error)
	ListTaskRecords(projectID int64) ([]*api.AgentTaskRecord, error)
	// ClaimTaskForDispatch atomically moves a record from pending to queued
	// and reports whether this call won the claim.
	ClaimTaskForDispatch(projectID int64, taskID string) (bool, error)
}

// Queue accepts dispatch payloads for a role. Enqueue must not block
// indefinitely; the pools buffer per role.
type Queue interface {
	Enqueue(role api.AgentRole, payload api.DispatchPayload) error
}

type Scheduler struct {
	store  Store
	queue  Queue
	policy FailurePolicy
}

func New(store Store, queue Queue, policy FailurePolicy) *Scheduler {
	if policy == "" {
		policy = FailureResolves
	}
	return &Scheduler{store: store, queue: queue, policy: policy}
}

// ScheduleTasks runs one scheduling pass for a project. It is safe to call
// concurrently for the same project: each record's pending -> queued
// transition is claimed atomically at the storage layer, so overlapping
// passes dispatch every eligible task exactly once between status changes.
//
// Records whose task id is missing from the plan, or whose dependencies name
// a task id with no ledger record, are left pending.
func (s *Scheduler) ScheduleTasks(ctx context.Context, projectID int64) error {
	tr := otel.Tracer("codexi")
	ctx, span := tr.Start(ctx, "scheduler.pass")
	span.SetAttributes(attribute.Int64("project.id", projectID))
	defer span.End()

	project, err := s.store.GetProject(projectID)
	if err != nil {
		return err
	}
	if project.Plan == nil {
		log.Printf("project %d has no project plan, cannot schedule tasks", projectID)
		return nil
	}

	records, err := s.store.ListTaskRecords(projectID)
	if err != nil {
		return err
	}

	resolved := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == api.TaskCompleted {
			resolved[r.TaskIDRef] = true
		}
		if r.Status == api.TaskFailed && s.policy == FailureResolves {
			resolved[r.TaskIDRef] = true
		}
	}

	dispatched := 0
	for _, r := range records {
		if r.Status != api.TaskPending {
			continue
		}
		planTask := project.Plan.FindTask(r.TaskIDRef)
		if planTask == nil {
			continue
		}
		if !depsSatisfied(planTask.Dependencies, resolved) {
			continue
		}

		claimed, err := s.store.ClaimTaskForDispatch(projectID, r.TaskIDRef)
		if err != nil {
			return err
		}
		if !claimed {
			// a concurrent pass got here first
			continue
		}
		payload := api.DispatchPayload{
			ProjectID: projectID,
			TaskID:    r.TaskIDRef,
			Task:      r.Description,
			Mode:      project.Mode,
		}
		if err := s.queue.Enqueue(r.AgentType, payload); err != nil {
			if errors.Is(err, ctx.Err()) {
				return err
			}
			log.Printf("enqueue %s for project %d failed: %v", r.TaskIDRef, projectID, err)
			continue
		}
		dispatched++
	}
	span.SetAttributes(attribute.Int("tasks.dispatched", dispatched))
	return nil
}

func depsSatisfied(deps []string, resolved map[string]bool) bool {
	for _, dep := range deps {
		if !resolved[dep] {
			return false
		}
	}
	return true
}
