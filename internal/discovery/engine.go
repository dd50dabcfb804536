package discovery

import (
	"errors"
	"fmt"

	"github.com/jutt313/code-xi/internal/store"
)

// Fatal discovery errors. These propagate to the caller unchanged; they are
// never retried.
var (
	ErrSessionNotFound = errors.New("discovery session not found")
	ErrUnknownQuestion = errors.New("no current question in session")
	ErrNoQuestions     = errors.New("no initial questions available for this project type")
)

// Store is the subset of persistence the engine needs. The discovery log is
// the only durable session state.
type Store interface {
	GetProjectContext(projectID int64) (technicalLevel, projectType string, err error)
	SetProjectType(projectID int64, projectType string) error
	SetCurrentQuestion(projectID int64, questionID *int64) error
	InsertDiscoveryQuestion(projectID int64, category, text string) (int64, error)
	AnswerDiscoveryQuestion(questionID int64, answer string) error
	ListDiscoveryRows(projectID int64) ([]store.DiscoveryRow, error)
}

// Engine is the discovery state machine: NotStarted -> AwaitingAnswer ->
// Complete, never backward. The flow is strictly sequential per project; at
// most one question is outstanding at a time.
type Engine struct {
	store Store
}

func NewEngine(s Store) *Engine {
	return &Engine{store: s}
}

// StartResult is the outcome of Conduct.
type StartResult struct {
	ProjectType   string
	QuestionID    int64
	FirstQuestion string
}

// Conduct classifies the initial idea, persists the first selected question
// and moves the project into AwaitingAnswer.
func (e *Engine) Conduct(projectID int64, technicalLevel, initialIdea string) (*StartResult, error) {
	projectType := CategorizeProject(initialIdea)
	if err := e.store.SetProjectType(projectID, projectType); err != nil {
		return nil, err
	}

	session := &Session{
		ProjectID:   projectID,
		Level:       ParseLevel(technicalLevel),
		ProjectType: projectType,
		Answered:    map[int64]Answered{},
	}
	first := SelectNextQuestion(session)
	if first == nil {
		return nil, ErrNoQuestions
	}

	qid, err := e.store.InsertDiscoveryQuestion(projectID, first.Category, first.Text)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetCurrentQuestion(projectID, &qid); err != nil {
		return nil, err
	}

	return &StartResult{
		ProjectType:   projectType,
		QuestionID:    qid,
		FirstQuestion: FormatQuestion(first, session.Level),
	}, nil
}

// TurnKind tags the outcome of one ProcessAnswer turn.
type TurnKind string

const (
	TurnQuestion TurnKind = "question"
	TurnComplete TurnKind = "complete"
)

// TurnResult is either the next formatted question or the compiled
// requirements once the pool is exhausted.
type TurnResult struct {
	Kind           TurnKind
	Content        string
	NextQuestionID *int64
	Requirements   []Requirement
}

// ProcessAnswer records the answer against the pending question, re-runs the
// selector and either persists the next question (staying in AwaitingAnswer)
// or compiles requirements and transitions to Complete.
func (e *Engine) ProcessAnswer(projectID int64, answer string) (*TurnResult, error) {
	session, err := e.LoadSession(projectID)
	if err != nil {
		return nil, err
	}
	if session.CurrentQuestionID == nil {
		return nil, ErrUnknownQuestion
	}
	currentID := *session.CurrentQuestionID

	if err := e.store.AnswerDiscoveryQuestion(currentID, answer); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("question %d: %w", currentID, ErrUnknownQuestion)
		}
		return nil, err
	}

	// fold the just-recorded answer into the replayed session before
	// re-running the selector
	current := session.Pending
	session.Answered[currentID] = Answered{Question: current, Answer: answer}
	session.CurrentQuestionID = nil

	next := SelectNextQuestion(session)
	if next == nil {
		if err := e.store.SetCurrentQuestion(projectID, nil); err != nil {
			return nil, err
		}
		reqs := CompileRequirements(session.Answered)
		return &TurnResult{
			Kind:         TurnComplete,
			Content:      "Project discovery complete. Generating project plan.",
			Requirements: reqs,
		}, nil
	}

	qid, err := e.store.InsertDiscoveryQuestion(projectID, next.Category, next.Text)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetCurrentQuestion(projectID, &qid); err != nil {
		return nil, err
	}
	return &TurnResult{
		Kind:           TurnQuestion,
		Content:        FormatQuestion(next, session.Level),
		NextQuestionID: &qid,
	}, nil
}

// LoadSession rebuilds the discovery session by replaying all persisted
// question rows for the project. Invariant: the current question id is
// exactly the last unanswered row; every other row carries an answer.
func (e *Engine) LoadSession(projectID int64) (*Session, error) {
	level, projectType, err := e.store.GetProjectContext(projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("project %d: %w", projectID, ErrSessionNotFound)
		}
		return nil, err
	}
	if projectType == "" {
		projectType = "general"
	}

	rows, err := e.store.ListDiscoveryRows(projectID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("project %d has no discovery log: %w", projectID, ErrSessionNotFound)
	}

	s := &Session{
		ProjectID:   projectID,
		Level:       ParseLevel(level),
		ProjectType: projectType,
		Answered:    map[int64]Answered{},
	}
	for _, r := range rows {
		q := lookupQuestion(projectType, r.Question)
		if q == nil {
			// row predates a pool change; keep text and category so the
			// answered filter still matches
			q = &Question{Category: r.Category, Text: r.Question, Importance: Medium}
		}
		if r.Answered {
			s.Answered[r.ID] = Answered{Question: *q, Answer: r.Answer}
		} else {
			id := r.ID
			s.CurrentQuestionID = &id
			s.Pending = *q
		}
	}
	return s, nil
}

// lookupQuestion recovers the full pool entry for a persisted question text.
func lookupQuestion(projectType, text string) *Question {
	for _, q := range QuestionsForProjectType(projectType) {
		if q.Text == text {
			qq := q
			return &qq
		}
	}
	return nil
}
