// Package pipeline runs multi-step work for a task: it routes each step
// description to a capability owner by keyword, executes the steps strictly
// in order, and consolidates artifacts, logs, and cost into one report.
package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route pairs a lowercase keyword with the owner that handles matching steps.
// Routes are evaluated top to bottom; the first keyword contained in the step
// text wins.
type Route struct {
	Keyword string `yaml:"keyword"`
	Owner   string `yaml:"owner"`
}

// DefaultRoutes returns the built-in routing table, grouped by domain.
func DefaultRoutes() []Route {
	return []Route{
		// Engineering steps
		{"scaffold", "builder"},
		{"generate", "builder"},
		{"implement", "builder"},
		{"component", "builder"},
		{"api", "builder"},
		{"endpoint", "builder"},
		{"migration", "builder"},
		{"deploy", "builder"},
		{"database", "builder"},
		{"schema", "builder"},

		// Marketing steps
		{"copy", "marketer"},
		{"campaign", "marketer"},
		{"seo", "marketer"},
		{"content", "marketer"},
		{"outreach", "marketer"},
		{"email", "marketer"},
		{"brand", "marketer"},

		// Research steps
		{"research", "researcher"},
		{"analyze", "researcher"},
		{"compile", "researcher"},
		{"market", "researcher"},
		{"competitor", "researcher"},
		{"data", "researcher"},

		// Quality steps
		{"verify", "reviewer"},
		{"security", "reviewer"},
		{"review", "reviewer"},
		{"audit", "reviewer"},
		{"test", "reviewer"},
		{"validate", "reviewer"},
	}
}

// routeOverlay is the on-disk shape of a routing overlay file.
type routeOverlay struct {
	Routes []Route `yaml:"routes"`
}

// LoadRoutes reads a routing overlay file and returns its routes prepended
// to the defaults, so overlay entries take precedence.
func LoadRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var overlay routeOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse routing overlay %s: %w", path, err)
	}

	for i, r := range overlay.Routes {
		if strings.TrimSpace(r.Keyword) == "" || strings.TrimSpace(r.Owner) == "" {
			return nil, fmt.Errorf("routing overlay %s: route %d missing keyword or owner", path, i)
		}
	}

	routes := make([]Route, 0, len(overlay.Routes)+36)
	for _, r := range overlay.Routes {
		routes = append(routes, Route{Keyword: strings.ToLower(r.Keyword), Owner: r.Owner})
	}
	return append(routes, DefaultRoutes()...), nil
}

// ResolveOwner matches a step description against the routing table.
// Matching is case-insensitive substring containment, first route wins.
// ok is false when no route matches and the step must run inline.
func ResolveOwner(routes []Route, step string) (owner string, ok bool) {
	lower := strings.ToLower(step)
	for _, r := range routes {
		if strings.Contains(lower, r.Keyword) {
			return r.Owner, true
		}
	}
	return "", false
}

// EnsureRoutable rewrites any step with no routing keyword to a research
// framing so externally supplied plans always reach an owner.
func EnsureRoutable(routes []Route, steps []string) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		if _, ok := ResolveOwner(routes, s); ok {
			out[i] = s
		} else {
			out[i] = "Research and analyze: " + s
		}
	}
	return out
}

// DeriveSteps builds a default step plan from the task's capability when no
// explicit plan was supplied.
func DeriveSteps(capability, query string) []string {
	switch strings.ToLower(capability) {
	case "build":
		return []string{
			"Analyze build requirements",
			"Scaffold project structure",
			"Generate component tree",
			"Implement API endpoints",
			"Apply styling and polish",
			"Run verification review",
			"Package release artifacts",
		}
	case "research", "estimate":
		return []string{
			"Decompose research query",
			"Compile existing data",
			"Analyze market landscape",
			"Generate findings report",
			"Verify findings quality",
		}
	case "workflow":
		return []string{
			"Parse workflow definition",
			"Validate stage dependencies",
			"Generate stage execution plan",
			"Run quality verification",
			"Package final artifacts",
		}
	case "chat":
		return []string{
			"Analyze user message",
			"Compile relevant context",
			"Generate response",
		}
	default:
		q := query
		if len(q) > 100 {
			q = q[:100]
		}
		return []string{
			"Analyze: " + q,
			"Generate cost estimate",
		}
	}
}
