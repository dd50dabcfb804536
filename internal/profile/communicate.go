package profile

import (
	"strconv"
	"strings"
)

// ConceptTranslations rewrites jargon in answer text to match the user's
// technical level.
var ConceptTranslations = map[string]map[string]string{
	"API": {
		"noCode":    "a way for different applications to talk to each other, like a phone connection between two systems",
		"business":  "the connection that lets your application share data with other business tools",
		"technical": "RESTful API with standard HTTP methods and JSON payloads",
		"expert":    "GraphQL API with schema federation and automatic persisted queries",
	},
	"Database": {
		"noCode":    "secure digital filing cabinet that remembers all your information",
		"business":  "organized storage system that keeps track of your customers, orders, and business data",
		"technical": "PostgreSQL relational database with proper indexing and query optimization",
		"expert":    "PostgreSQL with read replicas, connection pooling, and optimized query execution plans",
	},
	"Authentication": {
		"noCode":    "secure login system that makes sure only the right people can access your app",
		"business":  "user login system with different permission levels for employees and customers",
		"technical": "JWT-based authentication with role-based access control (RBAC)",
		"expert":    "OAuth 2.0 + OIDC with PKCE flow, RS256 JWT signing, and refresh token rotation",
	},
	"Frontend": {
		"noCode":    "the part of the app you see and interact with, like the buttons and screens",
		"business":  "the user interface where your customers or employees will perform their tasks",
		"technical": "React 18 with TypeScript for type safety and maintainability",
		"expert":    "Next.js 13+ with App Router, React Server Components",
	},
	"Backend": {
		"noCode":    "the 'brain' of the app that handles all the logic and data behind the scenes",
		"business":  "the server-side logic that processes requests and manages data for your business operations",
		"technical": "Node.js with Express.js for rapid development and JavaScript ecosystem",
		"expert":    "Node.js with Fastify for performance, GraphQL Federation",
	},
	"Deployment": {
		"noCode":    "getting your app ready and live for people to use",
		"business":  "the process of making the application available to your users, ensuring it runs smoothly",
		"technical": "Docker containers on AWS with auto-scaling capabilities",
		"expert":    "Kubernetes on AWS with Terraform IaC, blue-green deployments",
	},
	"Scalability": {
		"noCode":    "making sure your app can handle more users and grow without slowing down",
		"business":  "the ability of the system to handle increased user load and data volume as your business grows",
		"technical": "Horizontal scaling with load balancing and database sharding",
		"expert":    "Microservices architecture with event-driven communication and distributed caching",
	},
}

// Translate replaces known concepts in text with their per-level phrasing.
func Translate(text, technicalLevel string) string {
	for concept, perLevel := range ConceptTranslations {
		if !strings.Contains(text, concept) {
			continue
		}
		if translated, ok := perLevel[technicalLevel]; ok {
			text = strings.ReplaceAll(text, concept, translated)
		}
	}
	return text
}

// ProgressSnapshot carries the counts a progress update is built from.
type ProgressSnapshot struct {
	Completed int
	Total     int
}

func (p ProgressSnapshot) percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Completed * 100 / p.Total
}

// ProgressUpdate renders a task-count progress report adapted to the level.
func ProgressUpdate(technicalLevel string, snap ProgressSnapshot) string {
	pct := snap.percent()
	switch technicalLevel {
	case "noCode":
		return "Great progress! Your app is taking shape nicely. About " +
			strconv.Itoa(pct) + "% of the planned work is done."
	case "business":
		return "Project Status Update: " + strconv.Itoa(snap.Completed) + " of " +
			strconv.Itoa(snap.Total) + " planned tasks complete (" + strconv.Itoa(pct) + "%)."
	case "technical":
		return "Development Progress: " + strconv.Itoa(snap.Completed) + "/" +
			strconv.Itoa(snap.Total) + " tasks complete (" + strconv.Itoa(pct) + "%). Remaining tasks are dispatched as their dependencies clear."
	case "expert":
		return "Task graph progress: " + strconv.Itoa(snap.Completed) + "/" +
			strconv.Itoa(snap.Total) + " terminal (" + strconv.Itoa(pct) + "%). Scheduler dispatches pending tasks whose dependency sets are resolved."
	default:
		return "Progress Update: " + strconv.Itoa(pct) + "% complete."
	}
}

var errorExplanations = map[string]map[string]string{
	"api_rate_limit": {
		"noCode":    "I need to slow down a bit because I'm making too many requests. This is normal and will resolve in a few minutes.",
		"business":  "Hit API rate limits - this is a temporary slowdown to prevent system overload. No data lost.",
		"technical": "Rate limited by the LLM API. Implementing exponential backoff and retry logic.",
		"expert":    "429 Too Many Requests from the provider API. Retrying with the fixed-delay budget; circuit breaking is not applied.",
	},
	"dependency_conflict": {
		"noCode":    "Found a small conflict between different parts of your app. I'm fixing it automatically.",
		"business":  "Detected integration conflict between components. Resolving with alternative approach.",
		"technical": "Dependency conflict in package manifest. Resolving with compatible versions.",
		"expert":    "Peer dependency conflict. Analyzing semantic versioning constraints and updating resolution strategy.",
	},
	"database_connection_error": {
		"noCode":    "I'm having trouble connecting to the app's data storage. I'll try again in a moment.",
		"business":  "Database connection failed. This might be a temporary network issue or configuration problem. Attempting to reconnect.",
		"technical": "Failed to establish a database connection. Checking connection string, credentials, and network accessibility.",
		"expert":    "Database connection refused. Verifying auth rules, firewall settings, and service status; reconnecting with backoff.",
	},
	"invalid_json_response": {
		"noCode":    "I received some confusing information and couldn't understand it. I'll try to get clearer instructions.",
		"business":  "The system received an unreadable response from a component. This indicates a data formatting issue. Retrying the operation.",
		"technical": "Received invalid JSON from an internal service or the model. Inspecting the raw response for malformed syntax.",
		"expert":    "JSON parsing error on upstream response. Investigating serialization mismatches; the raw payload is preserved in the conversation log.",
	},
	"unknown_action": {
		"noCode":    "I'm not sure what to do next based on that. Could you tell me in simpler terms?",
		"business":  "The requested action is not recognized within the current project scope. Please clarify the desired outcome.",
		"technical": "Unrecognized action in the model's structured response. Reviewing the expected JSON schema for discrepancies.",
		"expert":    "Manager received an unhandled action type, deviating from the defined action schema. The raw response is logged.",
	},
}

// ExplainError renders a per-level explanation for a known error type, or a
// generic fallback.
func ExplainError(errorType, technicalLevel string) string {
	if perLevel, ok := errorExplanations[errorType]; ok {
		if msg, ok := perLevel[technicalLevel]; ok {
			return msg
		}
	}
	return "An unexpected error occurred: " + errorType + "."
}

