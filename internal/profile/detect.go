// Package profile classifies users by technical level and adapts outbound
// text (answers, progress, errors) to that level.
package profile

import "strings"

var technicalKeywords = []string{
	"api", "database", "backend", "frontend", "framework", "deployment",
	"repository", "git", "docker", "kubernetes", "microservices", "rest",
	"graphql", "authentication", "authorization", "ci/cd", "cloud",
	"typescript", "javascript", "python", "java", "go", "sql", "nosql",
	"orm", "pwa", "ssr", "jwt", "oauth", "containerization",
	"orchestration", "iac", "terraform", "aws", "gcp", "azure",
	"security", "vulnerability", "testing", "unit test", "integration test",
	"e2e", "performance", "load testing", "monitoring", "observability",
	"architecture", "design pattern", "scalability", "resilience",
	"devops", "agile", "scrum", "kanban",
}

var businessKeywords = []string{
	"customers", "users", "sales", "revenue", "marketing", "business model",
	"workflow", "process", "efficiency", "automation", "dashboard", "reports",
	"roi", "profit", "market", "strategy", "goal", "objective", "stakeholder",
	"budget", "cost", "value", "growth", "metrics", "analytics",
	"user experience", "ux", "customer journey",
}

var noCodeKeywords = []string{
	"simple", "easy", "drag and drop", "template", "no coding",
	"visual", "builder", "wizard", "automated", "ready-made",
	"out-of-the-box", "platform", "solution", "tool", "quickly",
	"without code", "low-code",
}

// Profile is the detected user classification.
type Profile struct {
	TechnicalLevel       string
	BusinessFocus        bool
	PreferenceIndicators bool
}

// Detect scores the prompt plus conversation history against keyword lists
// and buckets the user into one of the four technical levels.
func Detect(userInput string, history []string) Profile {
	all := strings.ToLower(userInput + " " + strings.Join(history, " "))

	count := func(keywords []string) int {
		n := 0
		for _, kw := range keywords {
			if strings.Contains(all, kw) {
				n++
			}
		}
		return n
	}
	technicalScore := count(technicalKeywords)
	businessScore := count(businessKeywords)
	noCodeScore := count(noCodeKeywords)

	var level string
	switch {
	case technicalScore > 5:
		level = "expert"
	case technicalScore > 2:
		level = "technical"
	case businessScore > 3 && technicalScore <= 2:
		level = "business"
	default:
		level = "noCode"
	}

	return Profile{
		TechnicalLevel:       level,
		BusinessFocus:        businessScore > technicalScore,
		PreferenceIndicators: noCodeScore > 0,
	}
}
