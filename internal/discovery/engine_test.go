package discovery

import (
	"errors"
	"strings"
	"testing"

	"github.com/jutt313/code-xi/internal/store"
)

// fakeStore is an in-memory discovery log for engine tests.
type fakeStore struct {
	level       string
	projectType string
	current     *int64
	rows        []store.DiscoveryRow
	nextID      int64
	missing     bool
}

func (f *fakeStore) GetProjectContext(projectID int64) (string, string, error) {
	if f.missing {
		return "", "", store.ErrNotFound
	}
	return f.level, f.projectType, nil
}

func (f *fakeStore) SetProjectType(projectID int64, projectType string) error {
	f.projectType = projectType
	return nil
}

func (f *fakeStore) SetCurrentQuestion(projectID int64, questionID *int64) error {
	f.current = questionID
	return nil
}

func (f *fakeStore) InsertDiscoveryQuestion(projectID int64, category, text string) (int64, error) {
	f.nextID++
	f.rows = append(f.rows, store.DiscoveryRow{ID: f.nextID, Category: category, Question: text})
	return f.nextID, nil
}

func (f *fakeStore) AnswerDiscoveryQuestion(questionID int64, answer string) error {
	for i := range f.rows {
		if f.rows[i].ID == questionID {
			f.rows[i].Answer = answer
			f.rows[i].Answered = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListDiscoveryRows(projectID int64) ([]store.DiscoveryRow, error) {
	return append([]store.DiscoveryRow{}, f.rows...), nil
}

func TestConductClassifiesAndAsksFirstQuestion(t *testing.T) {
	fs := &fakeStore{level: "business"}
	e := NewEngine(fs)

	res, err := e.Conduct(1, "business", "I want to build an online store for shoes")
	if err != nil {
		t.Fatalf("conduct: %v", err)
	}
	if res.ProjectType != "ecommerce" {
		t.Fatalf("expected ecommerce, got %q", res.ProjectType)
	}
	if fs.projectType != "ecommerce" {
		t.Fatalf("project type not persisted")
	}
	if fs.current == nil || *fs.current != res.QuestionID {
		t.Fatalf("current question not set")
	}
	if !strings.Contains(res.FirstQuestion, "What type of products") {
		t.Fatalf("unexpected first question: %q", res.FirstQuestion)
	}
}

func TestProcessAnswerWalksThroughToCompletion(t *testing.T) {
	fs := &fakeStore{level: "noCode"}
	e := NewEngine(fs)

	if _, err := e.Conduct(1, "noCode", "an online store"); err != nil {
		t.Fatalf("conduct: %v", err)
	}

	var final *TurnResult
	for i := 0; i < 50; i++ {
		turn, err := e.ProcessAnswer(1, "user accounts and wishlist please")
		if err != nil {
			t.Fatalf("process answer %d: %v", i, err)
		}
		if turn.Kind == TurnComplete {
			final = turn
			break
		}
		if turn.NextQuestionID == nil {
			t.Fatalf("question turn without next question id")
		}
	}
	if final == nil {
		t.Fatalf("discovery never completed")
	}
	if fs.current != nil {
		t.Fatalf("current question not cleared on completion")
	}
	if len(final.Requirements) == 0 {
		t.Fatalf("expected compiled requirements")
	}
	if !strings.Contains(final.Content, "discovery complete") {
		t.Fatalf("unexpected completion content: %q", final.Content)
	}

	// the wishlist answer against the user_features question must have fired
	found := false
	for _, r := range final.Requirements {
		if r.ID == "wishlist_feature" {
			found = true
		}
	}
	if !found {
		t.Fatalf("wishlist requirement not compiled: %+v", final.Requirements)
	}
}

func TestProcessAnswerWithoutPendingQuestion(t *testing.T) {
	fs := &fakeStore{level: "noCode", projectType: "general"}
	// one already-answered row, nothing pending
	fs.nextID = 1
	fs.rows = []store.DiscoveryRow{{ID: 1, Category: "general_scope", Question: "What is the primary goal or problem this project aims to solve?", Answer: "done", Answered: true}}

	e := NewEngine(fs)
	_, err := e.ProcessAnswer(1, "another answer")
	if !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestLoadSessionMissingProject(t *testing.T) {
	e := NewEngine(&fakeStore{missing: true})
	if _, err := e.LoadSession(42); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLoadSessionReplaysLog(t *testing.T) {
	fs := &fakeStore{level: "technical", projectType: "ecommerce"}
	e := NewEngine(fs)

	if _, err := e.Conduct(1, "technical", "an online store"); err != nil {
		t.Fatalf("conduct: %v", err)
	}
	if _, err := e.ProcessAnswer(1, "physical sneakers"); err != nil {
		t.Fatalf("process answer: %v", err)
	}

	s, err := e.LoadSession(1)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(s.Answered) != 1 {
		t.Fatalf("expected 1 answered row, got %d", len(s.Answered))
	}
	if s.CurrentQuestionID == nil {
		t.Fatalf("expected a pending question after one answer")
	}
	if s.Pending.Text == "" {
		t.Fatalf("pending question not recovered from pool")
	}
}
