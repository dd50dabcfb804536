// Package memory stores and recalls per-project agent context. Retrieval is
// a keyword-overlap heuristic over recent entries, not a similarity search.
package memory

import (
	"encoding/json"
	"strings"

	"github.com/jutt313/code-xi/internal/api"
)

// Store is the persistence surface for agent memory rows.
type Store interface {
	SaveMemory(agentType api.AgentRole, projectID int64, contextJSON string) error
	ListMemories(projectID int64, limit int) ([]string, error)
}

// Entry is one remembered decision or fact.
type Entry struct {
	Agent   api.AgentRole `json:"agent"`
	Topic   string        `json:"topic"`
	Content string        `json:"content"`
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// Save records one entry for the project.
func (s *Service) Save(agent api.AgentRole, projectID int64, topic, content string) error {
	b, err := json.Marshal(Entry{Agent: agent, Topic: topic, Content: content})
	if err != nil {
		return err
	}
	return s.store.SaveMemory(agent, projectID, string(b))
}

// recallWindow bounds how many recent rows a query scans.
const recallWindow = 50

// Recall returns stored entries whose topic or content shares at least one
// keyword with the query, newest first, up to limit. Keywords shorter than
// four characters are ignored to keep stopwords from matching everything.
func (s *Service) Recall(projectID int64, query string, limit int) ([]Entry, error) {
	rows, err := s.store.ListMemories(projectID, recallWindow)
	if err != nil {
		return nil, err
	}
	keywords := queryKeywords(query)

	var out []Entry
	for _, raw := range rows {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			// legacy or hand-written row; skip rather than fail the recall
			continue
		}
		if !matches(&e, keywords) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func queryKeywords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	keywords := fields[:0]
	for _, f := range fields {
		if len(f) >= 4 {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

func matches(e *Entry, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(e.Topic + " " + e.Content)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
