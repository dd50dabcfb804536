// Package manager is the coordination service behind the request surface:
// project creation, the discovery dialog, oracle-driven action dispatch, and
// the result-tracking feedback loop into the scheduler.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/discovery"
	"github.com/jutt313/code-xi/internal/oracle"
	"github.com/jutt313/code-xi/internal/profile"
	"github.com/jutt313/code-xi/internal/scheduler"
	"github.com/jutt313/code-xi/internal/store"
	"github.com/jutt313/code-xi/internal/tools"
)

// Manager owns one store, one discovery engine, one scheduler and one oracle.
// It is constructed once at process start and injected by reference; there is
// no ambient shared instance.
type Manager struct {
	store     *store.Store
	engine    *discovery.Engine
	scheduler *scheduler.Scheduler
	oracle    oracle.Oracle
	registry  *tools.Registry
}

func New(s *store.Store, sched *scheduler.Scheduler, o oracle.Oracle, reg *tools.Registry) *Manager {
	return &Manager{
		store:     s,
		engine:    discovery.NewEngine(discoveryStore{s}),
		scheduler: sched,
		oracle:    o,
		registry:  reg,
	}
}

// discoveryStore adapts the sqlite store to the discovery engine's surface.
type discoveryStore struct {
	*store.Store
}

func (d discoveryStore) GetProjectContext(projectID int64) (string, string, error) {
	p, err := d.GetProject(projectID)
	if err != nil {
		return "", "", err
	}
	level := "noCode"
	if p.UserID != nil {
		if l, err := d.UserTechnicalLevel(*p.UserID); err == nil && l != "" {
			level = l
		}
	}
	return level, p.ProjectType, nil
}

// CreateNewProject creates the project in discovery status, starts the
// discovery dialog and returns its first question.
func (m *Manager) CreateNewProject(ctx context.Context, req *api.CreateProjectRequest) (*api.CreateProjectResponse, error) {
	if req.Name == "" || req.InitialPrompt == "" {
		return nil, fmt.Errorf("name and initial_prompt are required")
	}

	level := profile.Detect(req.InitialPrompt, nil).TechnicalLevel
	if req.UserID != nil {
		if stored, err := m.store.UserTechnicalLevel(*req.UserID); err == nil && stored != "" {
			level = stored
		}
	} else {
		userID, err := m.store.CreateUser(level)
		if err != nil {
			return nil, err
		}
		req.UserID = &userID
	}

	projectID, err := m.store.CreateProject(req)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveConversation(projectID, "user", req.InitialPrompt); err != nil {
		return nil, err
	}

	started, err := m.engine.Conduct(projectID, level, req.InitialPrompt)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveConversation(projectID, "assistant", started.FirstQuestion); err != nil {
		return nil, err
	}
	return &api.CreateProjectResponse{ProjectID: projectID, Response: started.FirstQuestion}, nil
}

// ProcessProjectMessage routes one user message. During discovery with a
// question pending, the message is the answer; otherwise it goes through the
// oracle and its action is dispatched.
func (m *Manager) ProcessProjectMessage(ctx context.Context, projectID int64, prompt string) (string, error) {
	p, err := m.store.GetProject(projectID)
	if err != nil {
		return "", err
	}
	if err := m.store.SaveConversation(projectID, "user", prompt); err != nil {
		return "", err
	}

	var response string
	if p.Status == api.ProjectDiscovery && p.CurrentQuestionID != nil {
		response, err = m.handleDiscoveryAnswer(ctx, p, prompt)
	} else {
		response, err = m.handleOracleTurn(ctx, p, prompt)
	}
	if err != nil {
		return "", err
	}
	if err := m.store.SaveConversation(projectID, "assistant", response); err != nil {
		return "", err
	}
	return response, nil
}

func (m *Manager) handleDiscoveryAnswer(ctx context.Context, p *api.Project, answer string) (string, error) {
	turn, err := m.engine.ProcessAnswer(p.ID, answer)
	if err != nil {
		return "", err
	}
	if turn.Kind == discovery.TurnQuestion {
		return turn.Content, nil
	}

	for _, req := range turn.Requirements {
		if err := m.store.SaveRequirement(p.ID, req.ID, req.Description, req.Priority); err != nil {
			return "", err
		}
	}

	plan := PlanFromRequirements(p.Name, p.Description, turn.Requirements)
	if err := m.store.SetProjectPlan(p.ID, plan); err != nil {
		return "", err
	}
	if err := m.seedTaskRecords(p.ID, plan); err != nil {
		return "", err
	}
	// status moves first: workers reporting during the scheduling pass may
	// settle the project, and a later status write would undo that
	if err := m.store.SetProjectStatus(p.ID, api.ProjectInProgress); err != nil {
		return "", err
	}
	if err := m.scheduler.ScheduleTasks(ctx, p.ID); err != nil {
		return "", err
	}

	n := 0
	for _, ph := range plan.Phases {
		n += len(ph.Tasks)
	}
	return turn.Content + " " + strconv.Itoa(n) + " tasks created.", nil
}

// handleOracleTurn sends the prompt plus recent conversation to the oracle
// and dispatches the returned action. Unknown actions and malformed payloads
// surface a per-level diagnostic, never a silent no-op or a crash.
func (m *Manager) handleOracleTurn(ctx context.Context, p *api.Project, prompt string) (string, error) {
	level := m.userLevel(p)

	out, err := m.oracle.Invoke(ctx, m.buildPrompt(p, prompt), p.Mode)
	if err != nil {
		return "", err
	}

	action, err := oracle.ParseAction(out)
	if errors.Is(err, oracle.ErrNotAction) {
		return profile.Translate(out, level), nil
	}
	if err != nil {
		log.Printf("project %d: %v; raw output %q", p.ID, err, clip(out))
		return profile.ExplainError("invalid_json_response", level), nil
	}

	switch action.Type {
	case oracle.ActionAnswerQuestion:
		return profile.Translate(action.Content, level), nil

	case oracle.ActionCreateTasks:
		return m.applyCreateTasks(ctx, p, action.Tasks)

	case oracle.ActionToolCall:
		result, err := m.registry.Invoke(ctx, action.Tool, action.Args)
		if err != nil {
			log.Printf("project %d: tool %s: %v", p.ID, action.Tool, err)
			return "Tool " + action.Tool + " failed: " + err.Error(), nil
		}
		return result, nil

	case oracle.ActionUpdatePlan:
		return m.applyUpdatePlan(ctx, p, action.Plan)

	case oracle.ActionScanCodebase:
		path := action.Path
		if path == "" {
			path = p.CodebasePath
		}
		listing, err := m.registry.Invoke(ctx, "listDirectory", map[string]string{"path": path})
		if err != nil {
			return "Codebase scan failed: " + err.Error(), nil
		}
		return "Codebase structure:\n" + listing, nil

	case oracle.ActionProgressUpdate:
		snap, err := m.progress(p.ID)
		if err != nil {
			return "", err
		}
		return profile.ProgressUpdate(level, snap), nil

	case oracle.ActionErrorMessage:
		return profile.ExplainError(action.ErrorType, level), nil

	default:
		// closed set: anything else is a schema deviation worth surfacing
		log.Printf("project %d: unknown action %q; raw output %q", p.ID, action.Type, clip(out))
		return profile.ExplainError("unknown_action", level), nil
	}
}

func (m *Manager) applyCreateTasks(ctx context.Context, p *api.Project, tasks []api.Task) (string, error) {
	if len(tasks) == 0 {
		return "No tasks to create.", nil
	}
	plan := p.Plan
	if plan == nil {
		plan = &api.ProjectPlan{ProjectName: p.Name, Description: p.Description, Phases: defaultPhases()}
	}
	dev := developmentPhase(plan)
	for i := range tasks {
		t := tasks[i]
		if t.TaskID == "" {
			t.TaskID = nextTaskID(plan)
		}
		if !api.ValidRole(t.Agent) {
			t.Agent = api.RoleFullStack
		}
		t.Status = string(api.TaskPending)
		dev.Tasks = append(dev.Tasks, t)
		if err := m.store.CreateTaskRecord(p.ID, t.TaskID, t.Agent, t.Description); err != nil {
			return "", err
		}
	}
	if err := m.store.UpdateProjectPlan(p.ID, plan); err != nil {
		return "", err
	}
	if err := m.scheduler.ScheduleTasks(ctx, p.ID); err != nil {
		return "", err
	}
	return "Added " + strconv.Itoa(len(tasks)) + " tasks to the plan.", nil
}

func (m *Manager) applyUpdatePlan(ctx context.Context, p *api.Project, plan *api.ProjectPlan) (string, error) {
	if plan == nil {
		return "Plan update carried no plan.", nil
	}
	// an invented role would strand its record: the scheduler claims it
	// queued but no worker pool exists to drain that queue
	normalizeRoles(plan)
	if err := m.store.UpdateProjectPlan(p.ID, plan); err != nil {
		return "", err
	}
	// records are INSERT OR IGNORE, so existing tasks keep their status
	if err := m.seedTaskRecords(p.ID, plan); err != nil {
		return "", err
	}
	if err := m.scheduler.ScheduleTasks(ctx, p.ID); err != nil {
		return "", err
	}
	return "Project plan updated.", nil
}

// ProcessTaskResult is the result tracker: persist the outcome, then
// unconditionally reschedule so newly unblocked dependents dispatch. This is
// the only path that re-enters the scheduler after initial dispatch.
func (m *Manager) ProcessTaskResult(ctx context.Context, projectID int64, taskID string, status api.TaskStatus, output string) error {
	if status == api.TaskFailed {
		var envelope api.FaultEnvelope
		if err := json.Unmarshal([]byte(output), &envelope); err == nil && envelope.Type != "" {
			log.Printf("project %d: task %s failed (%s): %s", projectID, taskID, envelope.Type, envelope.Error)
		} else {
			log.Printf("project %d: task %s failed: %s", projectID, taskID, clip(output))
		}
	}

	if err := m.store.SaveTaskResult(projectID, taskID, status, output); err != nil {
		return err
	}
	if err := m.scheduler.ScheduleTasks(ctx, projectID); err != nil {
		return err
	}
	return m.settleProject(projectID)
}

// settleProject marks the project completed or failed once every task record
// is terminal.
func (m *Manager) settleProject(projectID int64) error {
	records, err := m.store.ListTaskRecords(projectID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	anyFailed := false
	for _, r := range records {
		switch r.Status {
		case api.TaskCompleted:
		case api.TaskFailed:
			anyFailed = true
		default:
			return nil
		}
	}
	status := api.ProjectCompleted
	if anyFailed {
		status = api.ProjectFailed
	}
	return m.store.SetProjectStatus(projectID, status)
}

func (m *Manager) progress(projectID int64) (profile.ProgressSnapshot, error) {
	records, err := m.store.ListTaskRecords(projectID)
	if err != nil {
		return profile.ProgressSnapshot{}, err
	}
	snap := profile.ProgressSnapshot{Total: len(records)}
	for _, r := range records {
		if r.Status == api.TaskCompleted {
			snap.Completed++
		}
	}
	return snap, nil
}

func (m *Manager) userLevel(p *api.Project) string {
	if p.UserID != nil {
		if l, err := m.store.UserTechnicalLevel(*p.UserID); err == nil && l != "" {
			return l
		}
	}
	return "noCode"
}

// historyWindow bounds how much conversation is replayed into the prompt.
const historyWindow = 20

func (m *Manager) buildPrompt(p *api.Project, prompt string) string {
	var b strings.Builder
	b.WriteString("You are the project manager for \"")
	b.WriteString(p.Name)
	b.WriteString("\". Respond with free text or a single JSON action object.\n")

	if history, err := m.store.ListConversation(p.ID); err == nil {
		start := 0
		if len(history) > historyWindow {
			start = len(history) - historyWindow
		}
		for _, msg := range history[start:] {
			b.WriteString(msg.Role)
			b.WriteString(": ")
			b.WriteString(msg.Message)
			b.WriteString("\n")
		}
	}
	b.WriteString("user: ")
	b.WriteString(prompt)
	return b.String()
}

func (m *Manager) seedTaskRecords(projectID int64, plan *api.ProjectPlan) error {
	for _, ph := range plan.Phases {
		for _, t := range ph.Tasks {
			if err := m.store.CreateTaskRecord(projectID, t.TaskID, t.Agent, t.Description); err != nil {
				return err
			}
		}
	}
	return nil
}

func clip(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
