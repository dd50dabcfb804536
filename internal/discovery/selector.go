package discovery

import (
	"sort"
	"strings"
)

// Session is the reconstructed discovery state for one project. It is never
// persisted as a whole; Engine rebuilds it from the project_discovery log on
// every turn. CurrentQuestionID is nil exactly when no question is pending.
type Session struct {
	ProjectID         int64
	Level             TechnicalLevel
	ProjectType       string
	CurrentQuestionID *int64
	// Pending is the full pool entry for the unanswered question, so an
	// incoming answer can be folded in without a second read.
	Pending  Question
	Answered map[int64]Answered
}

// Answered pairs a persisted question row with the user's answer.
type Answered struct {
	Question Question
	Answer   string
}

// SelectNextQuestion picks the head of the filtered, importance-sorted pool
// for the session, or nil when every eligible question has been answered.
//
// Filtering drops questions whose level filter exceeds the user's level and
// questions already answered (matched by question text). The sort is stable
// so equal-importance questions keep their original pool order.
func SelectNextQuestion(s *Session) *Question {
	pool := QuestionsForProjectType(s.ProjectType)

	answeredTexts := make(map[string]bool, len(s.Answered))
	for _, a := range s.Answered {
		answeredTexts[a.Question.Text] = true
	}

	eligible := pool[:0]
	for _, q := range pool {
		if q.LevelFilter != 0 && s.Level < q.LevelFilter {
			continue
		}
		if answeredTexts[q.Text] {
			continue
		}
		eligible = append(eligible, q)
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Importance > eligible[j].Importance
	})
	head := eligible[0]
	return &head
}

// FormatQuestion renders a question for the user. Follow-up hints and options
// are dropped for experts; examples are shown only to technical and expert
// users.
func FormatQuestion(q *Question, level TechnicalLevel) string {
	var b strings.Builder
	b.WriteString(q.Text)
	if q.FollowUp != "" && level != LevelExpert {
		b.WriteString("\n(e.g., ")
		b.WriteString(q.FollowUp)
		b.WriteString(")")
	}
	if len(q.Options) > 0 && level != LevelExpert {
		b.WriteString("\nOptions: ")
		b.WriteString(strings.Join(q.Options, ", "))
	}
	if len(q.Examples) > 0 && (level == LevelTechnical || level == LevelExpert) {
		b.WriteString("\nExamples: ")
		b.WriteString(strings.Join(q.Examples, ", "))
	}
	return b.String()
}
