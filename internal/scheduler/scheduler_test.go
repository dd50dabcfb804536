package scheduler

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/store"
	_ "modernc.org/sqlite"
)

type fakeQueue struct {
	mu       sync.Mutex
	payloads []api.DispatchPayload
}

func (q *fakeQueue) Enqueue(role api.AgentRole, payload api.DispatchPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) taskIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.payloads))
	for _, p := range q.payloads {
		out = append(out, p.TaskID)
	}
	return out
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	td, err := os.MkdirTemp("", "codexi-sched-")
	if err != nil {
		t.Fatalf("tmpdir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(td) })

	db, err := sql.Open("sqlite", filepath.Join(td, "codexi.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	// single connection keeps concurrent passes off SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := store.New(db)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

// seedProject creates a project with the given plan tasks and matching
// pending ledger records.
func seedProject(t *testing.T, s *store.Store, tasks []api.Task) int64 {
	t.Helper()
	id, err := s.CreateProject(&api.CreateProjectRequest{Name: "p", Mode: "standard", InitialPrompt: "x"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	plan := &api.ProjectPlan{
		ProjectName: "p",
		Phases:      []api.Phase{{Name: "Development", Tasks: tasks}},
	}
	if err := s.SetProjectPlan(id, plan); err != nil {
		t.Fatalf("set plan: %v", err)
	}
	for _, task := range tasks {
		if err := s.CreateTaskRecord(id, task.TaskID, task.Agent, task.Description); err != nil {
			t.Fatalf("create record %s: %v", task.TaskID, err)
		}
	}
	return id
}

func TestScheduleDispatchesOnlyUnblockedTasks(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQueue{}
	sched := New(s, q, FailureResolves)

	id := seedProject(t, s, []api.Task{
		{TaskID: "T1", Description: "first", Agent: api.RoleFullStack, Dependencies: []string{}},
		{TaskID: "T2", Description: "second", Agent: api.RoleQA, Dependencies: []string{"T1"}},
	})

	if err := sched.ScheduleTasks(context.Background(), id); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if got := q.taskIDs(); len(got) != 1 || got[0] != "T1" {
		t.Fatalf("expected only T1 dispatched, got %v", got)
	}

	// T1 completes; rescheduling must now release T2
	if err := s.SaveTaskResult(id, "T1", api.TaskCompleted, "done"); err != nil {
		t.Fatalf("save result: %v", err)
	}
	if err := sched.ScheduleTasks(context.Background(), id); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := q.taskIDs(); len(got) != 2 || got[1] != "T2" {
		t.Fatalf("expected T2 dispatched after T1 completed, got %v", got)
	}
}

func TestScheduleIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQueue{}
	sched := New(s, q, FailureResolves)

	id := seedProject(t, s, []api.Task{
		{TaskID: "T1", Description: "only", Agent: api.RoleFullStack, Dependencies: []string{}},
	})

	for i := 0; i < 3; i++ {
		if err := sched.ScheduleTasks(context.Background(), id); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}
	if got := q.taskIDs(); len(got) != 1 {
		t.Fatalf("expected exactly one dispatch across repeated passes, got %v", got)
	}
}

func TestScheduleConcurrentPassesDispatchOnce(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQueue{}
	sched := New(s, q, FailureResolves)

	id := seedProject(t, s, []api.Task{
		{TaskID: "T1", Description: "a", Agent: api.RoleFullStack, Dependencies: []string{}},
		{TaskID: "T2", Description: "b", Agent: api.RoleDevOps, Dependencies: []string{}},
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sched.ScheduleTasks(context.Background(), id)
		}()
	}
	wg.Wait()

	if got := q.taskIDs(); len(got) != 2 {
		t.Fatalf("expected 2 dispatches total under concurrency, got %v", got)
	}
}

func TestScheduleNonexistentDependencyNeverDispatches(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQueue{}
	sched := New(s, q, FailureResolves)

	id := seedProject(t, s, []api.Task{
		{TaskID: "T1", Description: "orphan dependent", Agent: api.RoleFullStack, Dependencies: []string{"GHOST"}},
	})

	for i := 0; i < 2; i++ {
		if err := sched.ScheduleTasks(context.Background(), id); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}
	if got := q.taskIDs(); len(got) != 0 {
		t.Fatalf("task with nonexistent dependency was dispatched: %v", got)
	}
}

func TestScheduleFailurePolicyResolve(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQueue{}
	sched := New(s, q, FailureResolves)

	id := seedProject(t, s, []api.Task{
		{TaskID: "T1", Description: "a", Agent: api.RoleFullStack, Dependencies: []string{}},
		{TaskID: "T2", Description: "b", Agent: api.RoleQA, Dependencies: []string{"T1"}},
	})

	if err := sched.ScheduleTasks(context.Background(), id); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := s.SaveTaskResult(id, "T1", api.TaskFailed, `{"error":"x","details":"","type":"TaskExecutionError"}`); err != nil {
		t.Fatalf("save result: %v", err)
	}
	if err := sched.ScheduleTasks(context.Background(), id); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := q.taskIDs(); len(got) != 2 || got[1] != "T2" {
		t.Fatalf("resolve policy should release T2 after T1 failed, got %v", got)
	}
}

func TestScheduleFailurePolicyBlock(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQueue{}
	sched := New(s, q, FailureBlocks)

	id := seedProject(t, s, []api.Task{
		{TaskID: "T1", Description: "a", Agent: api.RoleFullStack, Dependencies: []string{}},
		{TaskID: "T2", Description: "b", Agent: api.RoleQA, Dependencies: []string{"T1"}},
	})

	if err := sched.ScheduleTasks(context.Background(), id); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := s.SaveTaskResult(id, "T1", api.TaskFailed, "boom"); err != nil {
		t.Fatalf("save result: %v", err)
	}
	if err := sched.ScheduleTasks(context.Background(), id); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := q.taskIDs(); len(got) != 1 {
		t.Fatalf("block policy released dependents of a failed task: %v", got)
	}
}

func TestScheduleWithoutPlanIsNoOp(t *testing.T) {
	s := newTestStore(t)
	q := &fakeQueue{}
	sched := New(s, q, FailureResolves)

	id, err := s.CreateProject(&api.CreateProjectRequest{Name: "p", Mode: "standard", InitialPrompt: "x"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := sched.ScheduleTasks(context.Background(), id); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if got := q.taskIDs(); len(got) != 0 {
		t.Fatalf("dispatched without a plan: %v", got)
	}
}
