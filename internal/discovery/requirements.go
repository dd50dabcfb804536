package discovery

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jutt313/code-xi/internal/api"
)

// Requirement is the unit produced by discovery and consumed to seed tasks.
// Agents lists the eligible roles; the first entry becomes the task owner.
type Requirement struct {
	ID          string
	Description string
	Priority    string
	Kind        string // functional, non_functional, technical, business
	Agents      []api.AgentRole
}

// CompileRequirements maps answered questions to requirements through a
// static rule table. The same answers always yield the same requirement set:
// rules fire per (category, keyword-in-answer) pair and answers are visited
// in question-id order, so no randomness or external call is involved.
func CompileRequirements(answered map[int64]Answered) []Requirement {
	ids := make([]int64, 0, len(answered))
	for id := range answered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var reqs []Requirement
	for _, id := range ids {
		entry := answered[id]
		reqs = append(reqs, rulesFor(entry.Question, strings.ToLower(entry.Answer))...)
	}
	return reqs
}

func rulesFor(q Question, answer string) []Requirement {
	var out []Requirement
	add := func(r Requirement) { out = append(out, r) }

	switch q.Category {
	case "user_features":
		if strings.Contains(answer, "user accounts") {
			add(Requirement{
				ID:          "auth_system",
				Description: "User registration and login system",
				Priority:    "critical",
				Kind:        "functional",
				Agents:      []api.AgentRole{api.RoleFullStack, api.RoleSecurity},
			})
		}
		if strings.Contains(answer, "wishlist") {
			add(Requirement{
				ID:          "wishlist_feature",
				Description: "Customer wishlist functionality",
				Priority:    "medium",
				Kind:        "functional",
				Agents:      []api.AgentRole{api.RoleFullStack},
			})
		}

	case "business_scope":
		if !strings.Contains(q.Text, "products") {
			break
		}
		if strings.Contains(answer, "physical") {
			add(Requirement{
				ID:          "physical_product_management",
				Description: "Management of physical products",
				Priority:    "critical",
				Kind:        "functional",
				Agents:      []api.AgentRole{api.RoleFullStack},
			})
		}
		if strings.Contains(answer, "digital") {
			add(Requirement{
				ID:          "digital_product_management",
				Description: "Management of digital products/downloads",
				Priority:    "critical",
				Kind:        "functional",
				Agents:      []api.AgentRole{api.RoleFullStack},
			})
		}

	case "payment_shipping":
		if strings.Contains(q.Text, "payment methods") {
			if strings.Contains(answer, "credit cards") || strings.Contains(answer, "stripe") {
				add(Requirement{
					ID:          "credit_card_payment",
					Description: "Credit card payment processing via Stripe or similar gateway",
					Priority:    "critical",
					Kind:        "functional",
					Agents:      []api.AgentRole{api.RoleFullStack, api.RoleSecurity},
				})
			}
			if strings.Contains(answer, "paypal") {
				add(Requirement{
					ID:          "paypal_payment",
					Description: "PayPal payment integration",
					Priority:    "high",
					Kind:        "functional",
					Agents:      []api.AgentRole{api.RoleFullStack},
				})
			}
		}
		if strings.Contains(q.Text, "shipping and inventory") {
			if strings.Contains(answer, "yes") || strings.Contains(answer, "shipping") {
				add(Requirement{
					ID:          "shipping_management",
					Description: "Shipping management functionality",
					Priority:    "high",
					Kind:        "functional",
					Agents:      []api.AgentRole{api.RoleFullStack, api.RoleDevOps},
				})
				add(Requirement{
					ID:          "inventory_management",
					Description: "Inventory management system",
					Priority:    "high",
					Kind:        "functional",
					Agents:      []api.AgentRole{api.RoleFullStack},
				})
			}
		}

	case "technical_specifications":
		if strings.Contains(q.Text, "concurrent users") {
			if n, err := strconv.Atoi(leadingInt(answer)); err == nil && n > 1000 {
				add(Requirement{
					ID:          "high_scalability",
					Description: "Support for " + answer + " concurrent users",
					Priority:    "critical",
					Kind:        "non_functional",
					Agents:      []api.AgentRole{api.RoleSolutionsArchitect, api.RoleDevOps, api.RolePerformance},
				})
			}
		}
		if strings.Contains(q.Text, "existing product data feeds") {
			if strings.Contains(answer, "yes") || strings.Contains(answer, "api") ||
				strings.Contains(answer, "xml") || strings.Contains(answer, "csv") {
				add(Requirement{
					ID:          "data_feed_integration",
					Description: "Integration with existing product data feeds",
					Priority:    "high",
					Kind:        "technical",
					Agents:      []api.AgentRole{api.RoleFullStack, api.RoleSolutionsArchitect},
				})
			}
		}

	case "business_process":
		if strings.Contains(q.Text, "current process for managing customers") {
			add(Requirement{
				ID:          "current_crm_process",
				Description: "Understand current CRM process: " + answer,
				Priority:    "medium",
				Kind:        "business",
				Agents:      []api.AgentRole{api.RoleSolutionsArchitect},
			})
		}

	case "user_roles":
		if strings.Contains(q.Text, "Who will be using this system") {
			add(Requirement{
				ID:          "role_based_access",
				Description: "Role-based access for users: " + answer,
				Priority:    "critical",
				Kind:        "functional",
				Agents:      []api.AgentRole{api.RoleFullStack, api.RoleSecurity},
			})
		}

	case "integrations":
		if strings.Contains(q.Text, "existing tools need to connect") {
			if strings.Contains(answer, "email") {
				add(Requirement{
					ID:          "email_integration",
					Description: "Email system integration",
					Priority:    "high",
					Kind:        "functional",
					Agents:      []api.AgentRole{api.RoleFullStack},
				})
			}
			if strings.Contains(answer, "calendar") {
				add(Requirement{
					ID:          "calendar_integration",
					Description: "Calendar integration",
					Priority:    "high",
					Kind:        "functional",
					Agents:      []api.AgentRole{api.RoleFullStack},
				})
			}
		}

	case "custom_features":
		if strings.Contains(answer, "yes") {
			add(Requirement{
				ID:          "custom_order_personalization",
				Description: "Custom order and personalization features",
				Priority:    "high",
				Kind:        "functional",
				Agents:      []api.AgentRole{api.RoleFullStack},
			})
		}

	case "enterprise_features":
		if strings.Contains(answer, "yes") {
			add(Requirement{
				ID:          "role_based_permissions_workflows",
				Description: "Role-based permissions and approval workflows",
				Priority:    "critical",
				Kind:        "functional",
				Agents:      []api.AgentRole{api.RoleFullStack, api.RoleSolutionsArchitect, api.RoleSecurity},
			})
		}
	}
	return out
}

// leadingInt extracts the leading digit run of s, skipping leading spaces,
// so answers like "5000 at peak" parse the way callers expect.
func leadingInt(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
