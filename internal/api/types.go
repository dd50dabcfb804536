package api

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 7313
)

// ProjectStatus is the lifecycle state of a project. A project starts in
// discovery, moves to pending once a plan exists, and ends completed or failed.
type ProjectStatus string

const (
	ProjectDiscovery  ProjectStatus = "discovery"
	ProjectPending    ProjectStatus = "pending"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectFailed     ProjectStatus = "failed"
)

// TaskStatus is the lifecycle state of a single task record. Transitions only
// ever move forward: pending -> queued -> in_progress -> completed|failed.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskQueued     TaskStatus = "queued"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// AgentRole identifies a specialist worker pool and its task handler.
type AgentRole string

const (
	RoleFullStack          AgentRole = "FullStackEngineerAgent"
	RoleSolutionsArchitect AgentRole = "SolutionsArchitectAgent"
	RoleDevOps             AgentRole = "DevOpsEngineerAgent"
	RoleSecurity           AgentRole = "SecurityEngineerAgent"
	RoleQA                 AgentRole = "QAEngineerAgent"
	RoleDocumentation      AgentRole = "DocumentationSpecialistAgent"
	RolePerformance        AgentRole = "PerformanceEngineerAgent"
)

// Roles lists every dispatchable agent role, in queue-registration order.
var Roles = []AgentRole{
	RoleFullStack,
	RoleSolutionsArchitect,
	RoleDevOps,
	RoleSecurity,
	RoleQA,
	RoleDocumentation,
	RolePerformance,
}

// ValidRole reports whether r names a registered agent role.
func ValidRole(r AgentRole) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

type Project struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description,omitempty"`
	Mode              string        `json:"mode"`
	Status            ProjectStatus `json:"status"`
	ProjectType       string        `json:"project_type,omitempty"`
	CodebasePath      string        `json:"codebase_path,omitempty"`
	UserID            *int64        `json:"user_id,omitempty"`
	Plan              *ProjectPlan  `json:"plan,omitempty"`
	CurrentQuestionID *int64        `json:"current_discovery_question_id,omitempty"`
	CreatedAt         string        `json:"created_at"`
	UpdatedAt         string        `json:"updated_at"`
}

// ProjectPlan is the dependency-annotated task graph built from discovery.
type ProjectPlan struct {
	ProjectName string  `json:"project_name"`
	Description string  `json:"description"`
	Phases      []Phase `json:"phases"`
}

type Phase struct {
	Name  string `json:"phase_name"`
	Tasks []Task `json:"tasks"`
}

type Task struct {
	TaskID       string    `json:"task_id"`
	Description  string    `json:"description"`
	Agent        AgentRole `json:"agent"`
	Dependencies []string  `json:"dependencies"`
	Status       string    `json:"status"`
}

// FindTask returns the plan task with the given id, or nil. Task ids are
// unique across the whole plan, not just within a phase.
func (p *ProjectPlan) FindTask(taskID string) *Task {
	if p == nil {
		return nil
	}
	for pi := range p.Phases {
		for ti := range p.Phases[pi].Tasks {
			if p.Phases[pi].Tasks[ti].TaskID == taskID {
				return &p.Phases[pi].Tasks[ti]
			}
		}
	}
	return nil
}

// AgentTaskRecord is the durable queue ledger row. Scheduling decisions read
// these records, never the in-memory plan task status.
type AgentTaskRecord struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	TaskIDRef   string     `json:"task_id_ref"`
	AgentType   AgentRole  `json:"agent_type"`
	Description string     `json:"task_description"`
	Status      TaskStatus `json:"status"`
	OutputData  string     `json:"output_data,omitempty"`
	CompletedAt string     `json:"completed_at,omitempty"`
}

// DispatchPayload is the queue message handed to a role worker pool.
type DispatchPayload struct {
	ProjectID int64  `json:"projectId"`
	TaskID    string `json:"taskId"`
	Task      string `json:"task"`
	Mode      string `json:"mode"`
}

type CreateProjectRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Mode          string `json:"mode"`
	InitialPrompt string `json:"initial_prompt"`
	CodebasePath  string `json:"codebase_path,omitempty"`
	UserID        *int64 `json:"user_id,omitempty"`
}

type CreateProjectResponse struct {
	ProjectID int64  `json:"project_id"`
	Response  string `json:"response"`
}

type MessageRequest struct {
	Prompt string `json:"prompt"`
}

type MessageResponse struct {
	Response string `json:"response"`
}

// TaskResultRequest reports one finished task back to the result tracker.
type TaskResultRequest struct {
	ProjectID int64      `json:"project_id"`
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	Output    string     `json:"output"`
}
