// Package discovery drives the pre-planning dialog: it classifies the initial
// idea, selects questions adapted to the user's technical level, replays the
// persisted answer log as session state, and compiles answers into
// requirements that seed the initial task graph.
package discovery

import "strings"

// Importance orders questions within a pool. Critical questions are always
// asked before high, high before medium, and so on.
type Importance int

const (
	Low Importance = iota + 1
	Medium
	High
	Critical
)

func (i Importance) String() string {
	switch i {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

// TechnicalLevel is the ordinal user classification. Questions carrying a
// level filter are only shown to users at or above that level.
type TechnicalLevel int

const (
	LevelNoCode TechnicalLevel = iota + 1
	LevelBusiness
	LevelTechnical
	LevelExpert
)

var levelNames = map[string]TechnicalLevel{
	"noCode":    LevelNoCode,
	"business":  LevelBusiness,
	"technical": LevelTechnical,
	"expert":    LevelExpert,
}

// ParseLevel maps a stored level name to its ordinal. Unknown names map to
// zero, which fails every filter comparison and so hides filtered questions.
func ParseLevel(name string) TechnicalLevel {
	return levelNames[name]
}

func (l TechnicalLevel) String() string {
	switch l {
	case LevelNoCode:
		return "noCode"
	case LevelBusiness:
		return "business"
	case LevelTechnical:
		return "technical"
	case LevelExpert:
		return "expert"
	default:
		return "unknown"
	}
}

// Question is one entry of a static question pool.
type Question struct {
	Category    string
	Text        string
	FollowUp    string
	Options     []string
	Examples    []string
	Importance  Importance
	LevelFilter TechnicalLevel // zero means no filter
}

// projectCategories maps a project type to the keywords that detect it.
// Categories are scanned in this fixed order; the first keyword hit wins.
var projectCategories = []struct {
	name     string
	keywords []string
}{
	{"ecommerce", []string{"shop", "store", "buy", "sell", "product", "cart", "payment", "online store", "e-commerce"}},
	{"social", []string{"social", "chat", "message", "friend", "post", "share", "community", "feed", "network"}},
	{"crm", []string{"customer", "lead", "sales", "contact", "manage", "pipeline", "client", "relationship"}},
	{"dashboard", []string{"dashboard", "analytics", "report", "chart", "data", "metrics", "insights", "overview"}},
	{"booking", []string{"book", "appointment", "schedule", "calendar", "reservation", "event", "time slot"}},
	{"education", []string{"course", "learn", "student", "teach", "lesson", "quiz", "academy", "training"}},
}

// CategorizeProject scans the fixed category keyword lists and returns the
// first category whose keyword appears as a case-insensitive substring of the
// input, or "general" when none match.
func CategorizeProject(input string) string {
	lower := strings.ToLower(input)
	for _, cat := range projectCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}
	return "general"
}

var ecommerceQuestions = []Question{
	{
		Category:   "business_scope",
		Text:       "What type of products will you be selling?",
		FollowUp:   "Are these physical products, digital downloads, or services?",
		Importance: Critical,
	},
	{
		Category:   "business_scope",
		Text:       "Who is your target customer?",
		FollowUp:   "What age group, location, and buying behavior?",
		Importance: Critical,
	},
	{
		Category:   "business_scope",
		Text:       "How many products do you plan to have initially?",
		FollowUp:   "Will this grow to hundreds, thousands, or more?",
		Importance: High,
	},
	{
		Category:   "payment_shipping",
		Text:       "What payment methods do you want to accept?",
		Options:    []string{"Credit cards", "PayPal", "Stripe", "Bank transfers", "Cryptocurrency"},
		Importance: Critical,
	},
	{
		Category:   "payment_shipping",
		Text:       "Do you need shipping and inventory management?",
		FollowUp:   "Will you handle shipping yourself or use dropshipping?",
		Importance: High,
	},
	{
		Category:   "user_features",
		Text:       "What features do customers need?",
		Options:    []string{"User accounts", "Wishlist", "Reviews", "Recommendations", "Loyalty program"},
		Importance: Medium,
	},
	{
		Category:    "technical_specifications",
		Text:        "What are your expected peak concurrent users and daily transaction volume?",
		Importance:  High,
		LevelFilter: LevelExpert,
	},
	{
		Category:    "technical_specifications",
		Text:        "Do you have any existing product data feeds (e.g., XML, CSV) or APIs to integrate?",
		Importance:  High,
		LevelFilter: LevelTechnical,
	},
}

var crmQuestions = []Question{
	{
		Category:   "business_process",
		Text:       "What is your current process for managing customers?",
		FollowUp:   "What tools do you use now and what's frustrating about them?",
		Importance: Critical,
	},
	{
		Category:   "user_roles",
		Text:       "Who will be using this system?",
		Options:    []string{"Sales team", "Marketing", "Customer service", "Management", "External clients"},
		Importance: Critical,
	},
	{
		Category:   "integrations",
		Text:       "What existing tools need to connect with this system?",
		Examples:   []string{"Email (Gmail, Outlook)", "Calendar", "Accounting software", "Marketing tools"},
		Importance: High,
	},
	{
		Category:    "technical_specifications",
		Text:        "What are the key data entities (e.g., Leads, Contacts, Deals) and their relationships?",
		Importance:  High,
		LevelFilter: LevelTechnical,
	},
	{
		Category:    "technical_specifications",
		Text:        "Do you require custom workflow automation or complex reporting capabilities?",
		Importance:  High,
		LevelFilter: LevelExpert,
	},
}

var defaultQuestions = []Question{
	{
		Category:   "general_scope",
		Text:       "What is the primary goal or problem this project aims to solve?",
		Importance: Critical,
	},
	{
		Category:   "target_users",
		Text:       "Who are the main users of this application?",
		Importance: Critical,
	},
	{
		Category:   "key_features",
		Text:       "What are the absolute must-have features for the first version?",
		Importance: High,
	},
	{
		Category:    "technical_preference",
		Text:        "Do you have any preferred technologies or platforms?",
		Importance:  Medium,
		LevelFilter: LevelTechnical,
	},
	{
		Category:   "timeline_budget",
		Text:       "What is your ideal timeline and budget for this project?",
		Importance: Medium,
	},
}

// QuestionsForProjectType returns the question pool for a project type. The
// default pool is always appended so every project gets the generic scope
// questions after the type-specific ones.
func QuestionsForProjectType(projectType string) []Question {
	switch projectType {
	case "ecommerce":
		return append(append([]Question{}, ecommerceQuestions...), defaultQuestions...)
	case "crm":
		return append(append([]Question{}, crmQuestions...), defaultQuestions...)
	default:
		return append([]Question{}, defaultQuestions...)
	}
}
