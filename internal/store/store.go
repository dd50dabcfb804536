package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jutt313/code-xi/internal/api"
)

type Store struct {
	db *sql.DB
}

var ErrNotFound = errors.New("not found")

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) String() string {
	return fmt.Sprintf("store(%p)", s)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Init runs migrations using PRAGMA user_version.
func (s *Store) Init() error {
	var ver int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&ver); err != nil {
		return err
	}
	if ver >= 1 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// v1 schema
	stmts := []string{`
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  technical_level TEXT NOT NULL DEFAULT 'unknown',
  created_at TEXT NOT NULL
);
`, `
CREATE TABLE IF NOT EXISTS projects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT,
  mode TEXT NOT NULL,
  status TEXT NOT NULL,
  project_type TEXT,
  codebase_path TEXT,
  user_id INTEGER REFERENCES users(id),
  project_plan TEXT,
  current_discovery_question_id INTEGER,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`, `
CREATE TABLE IF NOT EXISTS agent_tasks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  task_id_ref TEXT NOT NULL,
  agent_type TEXT NOT NULL,
  task_description TEXT NOT NULL,
  status TEXT NOT NULL,
  output_data TEXT,
  completed_at TEXT,
  created_at TEXT NOT NULL,
  UNIQUE(project_id, task_id_ref)
);
`, `
CREATE TABLE IF NOT EXISTS project_discovery (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  question_category TEXT NOT NULL,
  question_text TEXT NOT NULL,
  user_answer TEXT,
  answer_confidence TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`, `
CREATE TABLE IF NOT EXISTS project_requirements (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  requirement_id TEXT NOT NULL,
  requirement_text TEXT NOT NULL,
  priority TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`, `
CREATE TABLE IF NOT EXISTS conversations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  role TEXT NOT NULL,
  message TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`, `
CREATE TABLE IF NOT EXISTS agent_memory (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  agent_type TEXT NOT NULL,
  project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  context TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`}
	for _, q := range stmts {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1`); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateUser inserts a user row with the given technical level and returns its id.
func (s *Store) CreateUser(technicalLevel string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO users (technical_level, created_at) VALUES (?, ?)`, technicalLevel, now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UserTechnicalLevel returns the stored technical level for a user, or
// ErrNotFound if the user does not exist.
func (s *Store) UserTechnicalLevel(userID int64) (string, error) {
	var level string
	err := s.db.QueryRow(`SELECT technical_level FROM users WHERE id = ?`, userID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return level, nil
}

func (s *Store) SetUserTechnicalLevel(userID int64, level string) error {
	_, err := s.db.Exec(`UPDATE users SET technical_level = ? WHERE id = ?`, level, userID)
	return err
}

// CreateProject inserts a project in discovery status and returns its id.
func (s *Store) CreateProject(r *api.CreateProjectRequest) (int64, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO projects (name, description, mode, status, codebase_path, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Description, r.Mode, string(api.ProjectDiscovery), r.CodebasePath, r.UserID, ts, ts,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetProject(projectID int64) (*api.Project, error) {
	row := s.db.QueryRow(
		`SELECT id, name, COALESCE(description, ''), mode, status, COALESCE(project_type, ''), COALESCE(codebase_path, ''), user_id, project_plan, current_discovery_question_id, created_at, updated_at FROM projects WHERE id = ?`,
		projectID,
	)
	var p api.Project
	var userID sql.NullInt64
	var planJSON sql.NullString
	var questionID sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Mode, &p.Status, &p.ProjectType, &p.CodebasePath, &userID, &planJSON, &questionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if userID.Valid {
		v := userID.Int64
		p.UserID = &v
	}
	if questionID.Valid {
		v := questionID.Int64
		p.CurrentQuestionID = &v
	}
	if planJSON.Valid && planJSON.String != "" {
		var plan api.ProjectPlan
		if err := json.Unmarshal([]byte(planJSON.String), &plan); err != nil {
			return nil, fmt.Errorf("corrupt project plan for project %d: %w", projectID, err)
		}
		p.Plan = &plan
	}
	return &p, nil
}

func (s *Store) SetProjectType(projectID int64, projectType string) error {
	return s.touchProject(projectID, `UPDATE projects SET project_type = ?, updated_at = ? WHERE id = ?`, projectType)
}

// SetCurrentQuestion records which discovery question is awaiting an answer.
// A nil id means discovery has no outstanding question.
func (s *Store) SetCurrentQuestion(projectID int64, questionID *int64) error {
	_, err := s.db.Exec(`UPDATE projects SET current_discovery_question_id = ?, updated_at = ? WHERE id = ?`, questionID, now(), projectID)
	return err
}

func (s *Store) SetProjectStatus(projectID int64, status api.ProjectStatus) error {
	return s.touchProject(projectID, `UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`, string(status))
}

// SetProjectPlan stores the serialized plan and moves the project to pending,
// clearing any outstanding discovery question in the same statement.
func (s *Store) SetProjectPlan(projectID int64, plan *api.ProjectPlan) error {
	b, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE projects SET status = ?, project_plan = ?, current_discovery_question_id = NULL, updated_at = ? WHERE id = ?`,
		string(api.ProjectPending), string(b), now(), projectID,
	)
	return err
}

// UpdateProjectPlan replaces the plan without touching project status.
func (s *Store) UpdateProjectPlan(projectID int64, plan *api.ProjectPlan) error {
	b, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return s.touchProject(projectID, `UPDATE projects SET project_plan = ?, updated_at = ? WHERE id = ?`, string(b))
}

func (s *Store) touchProject(projectID int64, query string, arg any) error {
	res, err := s.db.Exec(query, arg, now(), projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTaskRecord inserts a pending ledger row for a plan task. Inserting the
// same (project, task id) twice is a no-op so repeated create_tasks actions
// cannot duplicate queue entries.
func (s *Store) CreateTaskRecord(projectID int64, taskID string, agent api.AgentRole, description string) error {
	if err := api.ValidateTaskID(taskID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO agent_tasks (project_id, task_id_ref, agent_type, task_description, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		projectID, taskID, string(agent), description, string(api.TaskPending), now(),
	)
	return err
}

// ListTaskRecords returns all ledger rows for a project in insertion order.
func (s *Store) ListTaskRecords(projectID int64) ([]*api.AgentTaskRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, task_id_ref, agent_type, task_description, status, COALESCE(output_data, ''), COALESCE(completed_at, '') FROM agent_tasks WHERE project_id = ? ORDER BY id ASC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*api.AgentTaskRecord
	for rows.Next() {
		var r api.AgentTaskRecord
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.TaskIDRef, &r.AgentType, &r.Description, &r.Status, &r.OutputData, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) GetTaskRecord(projectID int64, taskID string) (*api.AgentTaskRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, project_id, task_id_ref, agent_type, task_description, status, COALESCE(output_data, ''), COALESCE(completed_at, '') FROM agent_tasks WHERE project_id = ? AND task_id_ref = ?`,
		projectID, taskID,
	)
	var r api.AgentTaskRecord
	if err := row.Scan(&r.ID, &r.ProjectID, &r.TaskIDRef, &r.AgentType, &r.Description, &r.Status, &r.OutputData, &r.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ClaimTaskForDispatch performs the atomic pending -> queued transition.
// Only a row still in pending status is claimed; concurrent scheduler runs
// racing on the same record see RowsAffected() == 0 and back off, which is
// what guarantees at-most-once dispatch.
func (s *Store) ClaimTaskForDispatch(projectID int64, taskID string) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE agent_tasks SET status = ? WHERE project_id = ? AND task_id_ref = ? AND status = ?`,
		string(api.TaskQueued), projectID, taskID, string(api.TaskPending),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkTaskInProgress moves a queued record to in_progress. Any other state
// returns ErrNotFound so a worker never executes a record it does not hold.
func (s *Store) MarkTaskInProgress(projectID int64, taskID string) error {
	res, err := s.db.Exec(
		`UPDATE agent_tasks SET status = ? WHERE project_id = ? AND task_id_ref = ? AND status = ?`,
		string(api.TaskInProgress), projectID, taskID, string(api.TaskQueued),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveTaskResult persists the terminal status, raw output and completion
// timestamp for a record.
func (s *Store) SaveTaskResult(projectID int64, taskID string, status api.TaskStatus, output string) error {
	res, err := s.db.Exec(
		`UPDATE agent_tasks SET status = ?, output_data = ?, completed_at = ? WHERE project_id = ? AND task_id_ref = ?`,
		string(status), output, now(), projectID, taskID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DiscoveryRow is one persisted question/answer pair. The discovery session
// is replayed from these rows; there is no separate session record.
type DiscoveryRow struct {
	ID       int64
	Category string
	Question string
	Answer   string
	Answered bool
}

// InsertDiscoveryQuestion appends an unanswered question row and returns its id.
func (s *Store) InsertDiscoveryQuestion(projectID int64, category, text string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO project_discovery (project_id, question_category, question_text, answer_confidence, created_at) VALUES (?, ?, ?, ?, ?)`,
		projectID, category, text, "unanswered", now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AnswerDiscoveryQuestion records the user's answer on a question row.
func (s *Store) AnswerDiscoveryQuestion(questionID int64, answer string) error {
	res, err := s.db.Exec(
		`UPDATE project_discovery SET user_answer = ?, answer_confidence = ? WHERE id = ?`,
		answer, "complete", questionID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDiscoveryRows returns the project's question log in insertion order.
func (s *Store) ListDiscoveryRows(projectID int64) ([]DiscoveryRow, error) {
	rows, err := s.db.Query(
		`SELECT id, question_category, question_text, COALESCE(user_answer, ''), answer_confidence FROM project_discovery WHERE project_id = ? ORDER BY id ASC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiscoveryRow
	for rows.Next() {
		var r DiscoveryRow
		var confidence string
		if err := rows.Scan(&r.ID, &r.Category, &r.Question, &r.Answer, &confidence); err != nil {
			return nil, err
		}
		r.Answered = confidence == "complete"
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRequirement records one compiled requirement for audit.
func (s *Store) SaveRequirement(projectID int64, reqID, text, priority string) error {
	_, err := s.db.Exec(
		`INSERT INTO project_requirements (project_id, requirement_id, requirement_text, priority, created_at) VALUES (?, ?, ?, ?, ?)`,
		projectID, reqID, text, priority, now(),
	)
	return err
}

// SaveConversation appends a message to the project conversation log.
func (s *Store) SaveConversation(projectID int64, role, message string) error {
	_, err := s.db.Exec(
		`INSERT INTO conversations (project_id, role, message, created_at) VALUES (?, ?, ?, ?)`,
		projectID, role, message, now(),
	)
	return err
}

// ConversationMessage is one turn of the project dialog.
type ConversationMessage struct {
	Role    string
	Message string
}

func (s *Store) ListConversation(projectID int64) ([]ConversationMessage, error) {
	rows, err := s.db.Query(
		`SELECT role, message FROM conversations WHERE project_id = ? ORDER BY id ASC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationMessage
	for rows.Next() {
		var m ConversationMessage
		if err := rows.Scan(&m.Role, &m.Message); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveMemory stores an agent decision context as JSON.
func (s *Store) SaveMemory(agentType api.AgentRole, projectID int64, contextJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO agent_memory (agent_type, project_id, context, created_at) VALUES (?, ?, ?, ?)`,
		string(agentType), projectID, contextJSON, now(),
	)
	return err
}

// ListMemories returns the newest memory rows for a project, up to limit.
func (s *Store) ListMemories(projectID int64, limit int) ([]string, error) {
	q := `SELECT context FROM agent_memory WHERE project_id = ? ORDER BY id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+` LIMIT ?`, projectID, limit)
	} else {
		rows, err = s.db.Query(q, projectID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ctx string
		if err := rows.Scan(&ctx); err != nil {
			return nil, err
		}
		out = append(out, ctx)
	}
	return out, rows.Err()
}
