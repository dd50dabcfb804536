package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/discovery"
	"github.com/jutt313/code-xi/internal/store"
)

// Manager is the coordination surface the HTTP layer delegates to.
type Manager interface {
	CreateNewProject(ctx context.Context, req *api.CreateProjectRequest) (*api.CreateProjectResponse, error)
	ProcessProjectMessage(ctx context.Context, projectID int64, prompt string) (string, error)
	ProcessTaskResult(ctx context.Context, projectID int64, taskID string, status api.TaskStatus, output string) error
}

// Store is the read-only query surface for project and task endpoints.
type Store interface {
	GetProject(projectID int64) (*api.Project, error)
	ListTaskRecords(projectID int64) ([]*api.AgentTaskRecord, error)
}

type Server struct {
	manager Manager
	store   Store
}

func NewServer(manager Manager, store Store) *Server {
	return &Server{manager: manager, store: store}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/projects", s.handleCreateProject)
	mux.HandleFunc("POST /v1/projects/{project_id}/messages", s.handleMessage)
	mux.HandleFunc("GET /v1/projects/{project_id}", s.handleGetProject)
	mux.HandleFunc("GET /v1/projects/{project_id}/tasks", s.handleListTasks)
	mux.HandleFunc("POST /v1/results", s.handleTaskResult)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.InitialPrompt == "" {
		http.Error(w, "name and initial_prompt are required", http.StatusBadRequest)
		return
	}

	resp, err := s.manager.CreateNewProject(r.Context(), &req)
	if err != nil {
		http.Error(w, "failed to create project", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	var req api.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	response, err := s.manager.ProcessProjectMessage(r.Context(), projectID, req.Prompt)
	if isNotFound(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, discovery.ErrUnknownQuestion) {
		http.Error(w, "no question pending", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(api.MessageResponse{Response: response})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	project, err := s.store.GetProject(projectID)
	if isNotFound(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to read project", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(project)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	// distinguish empty task list from missing project
	if _, err := s.store.GetProject(projectID); isNotFound(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, "failed to read project", http.StatusInternalServerError)
		return
	}

	records, err := s.store.ListTaskRecords(projectID)
	if err != nil {
		http.Error(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	var req api.TaskResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ProjectID == 0 || req.TaskID == "" {
		http.Error(w, "project_id and task_id are required", http.StatusBadRequest)
		return
	}
	if err := api.ValidateTaskID(req.TaskID); err != nil {
		http.Error(w, "invalid task_id", http.StatusBadRequest)
		return
	}
	if req.Status != api.TaskCompleted && req.Status != api.TaskFailed {
		http.Error(w, "status must be completed or failed", http.StatusBadRequest)
		return
	}

	err := s.manager.ProcessTaskResult(r.Context(), req.ProjectID, req.TaskID, req.Status, req.Output)
	if isNotFound(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to record result", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("recorded"))
}

func pathProjectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("project_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid project_id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, discovery.ErrSessionNotFound)
}
