package memory

import (
	"testing"

	"github.com/jutt313/code-xi/internal/api"
)

// fakeStore keeps memory rows in insertion order, newest first on list.
type fakeStore struct {
	rows []string
}

func (f *fakeStore) SaveMemory(agentType api.AgentRole, projectID int64, contextJSON string) error {
	f.rows = append([]string{contextJSON}, f.rows...)
	return nil
}

func (f *fakeStore) ListMemories(projectID int64, limit int) ([]string, error) {
	if limit > 0 && limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func TestSaveAndRecallByKeyword(t *testing.T) {
	s := New(&fakeStore{})

	if err := s.Save(api.RoleSecurity, 1, "TASK_1", "chose JWT authentication with refresh tokens"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(api.RoleDevOps, 1, "TASK_2", "deployment uses docker on a single VM"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Recall(1, "implement authentication flow", 10)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(got), got)
	}
	if got[0].Agent != api.RoleSecurity {
		t.Fatalf("unexpected entry: %+v", got[0])
	}
}

func TestRecallEmptyQueryReturnsRecent(t *testing.T) {
	s := New(&fakeStore{})
	for _, topic := range []string{"TASK_1", "TASK_2", "TASK_3"} {
		if err := s.Save(api.RoleFullStack, 1, topic, "content for "+topic); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.Recall(1, "", 2)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit respected, got %d", len(got))
	}
	if got[0].Topic != "TASK_3" {
		t.Fatalf("expected newest first, got %+v", got)
	}
}

func TestRecallIgnoresShortStopwords(t *testing.T) {
	s := New(&fakeStore{})
	if err := s.Save(api.RoleQA, 1, "TASK_1", "tests use the standard runner"); err != nil {
		t.Fatalf("save: %v", err)
	}

	// every query word is under four characters, so nothing should filter
	got, err := s.Recall(1, "a of the and", 10)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("short words should not exclude entries, got %d", len(got))
	}
}

func TestRecallSkipsCorruptRows(t *testing.T) {
	fs := &fakeStore{rows: []string{"not json at all"}}
	s := New(fs)
	if err := s.Save(api.RoleQA, 1, "TASK_1", "valid entry about testing"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Recall(1, "testing", 10)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("corrupt row should be skipped, got %d", len(got))
	}
}
