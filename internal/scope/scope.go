// Package scope shapes the minimized knowledge context for a request.
// The bundle deliberately carries a small key→value summary, never the raw
// request text, so downstream consumers stay cheap to feed.
package scope

import (
	"strconv"
	"strings"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// domainRule maps detection keywords to a knowledge domain and its logical
// origin tag. Rules are evaluated in order; every matching domain is kept.
type domainRule struct {
	domain      string
	source      string
	keywords    []string
	multiSource bool
}

var domainRules = []domainRule{
	{domain: "engineering", source: "builder", keywords: []string{"api", "frontend", "backend", "service", "database"}},
	{domain: "marketing", source: "marketer", keywords: []string{"market", "seo", "campaign", "brand"}},
	{domain: "finance", source: "cost-engine", keywords: []string{"cost", "budget", "pricing"}},
	{domain: "automation", source: "workflow-runner", keywords: []string{"workflow", "automate", "pipeline"}},
	// Analytics work cross-references several upstream feeds, which the cost
	// gate surfaces as a high-cost flag.
	{domain: "data-analytics", source: "research-index", keywords: []string{"dataset", "analytics", "metrics", "benchmark"}, multiSource: true},
}

// tokensPerNode is the context budget attributed to each graph node.
const tokensPerNode = 500

// Shape derives the context bundle for an intent and its task graph.
func Shape(in models.NormalizedIntent, g models.TaskGraph) models.ContextBundle {
	lower := strings.ToLower(in.Normalized)

	var domains, sources []string
	for _, rule := range domainRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				domains = append(domains, rule.domain)
				sources = append(sources, rule.source)
				break
			}
		}
	}
	if len(domains) == 0 {
		domains = append(domains, "general")
		sources = append(sources, "core")
	}

	signals := make([]string, len(in.Signals))
	for i, s := range in.Signals {
		signals[i] = string(s)
	}

	scoped := map[string]string{
		"signals":    strings.Join(signals, ","),
		"task_count": strconv.Itoa(g.TotalNodes),
		"domains":    strings.Join(domains, ","),
	}

	return models.ContextBundle{
		Domains:           domains,
		ScopedContext:     scoped,
		PayloadSizeTokens: g.TotalNodes*tokensPerNode + len(in.Normalized)*2,
		Sources:           sources,
	}
}

// MultiSource reports whether any of the bundle's domains pulls from
// multiple upstream sources.
func MultiSource(b models.ContextBundle) bool {
	for _, d := range b.Domains {
		for _, rule := range domainRules {
			if rule.domain == d && rule.multiSource {
				return true
			}
		}
	}
	return false
}
