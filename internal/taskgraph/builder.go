// Package taskgraph decomposes a normalized intent into a dependency graph
// of atomic objectives and computes its critical path.
package taskgraph

import (
	"strings"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// missingTargetNote annotates every node when the request names no target.
const missingTargetNote = "TARGET_ENTITY: target entity unclear — who or what is this for?"

// maxFallbackObjective caps how much raw text the fallback node carries.
const maxFallbackObjective = 80

// Build decomposes an intent into a task graph. Each detected signal
// contributes a fixed template chain with forward-only dependencies, so the
// resulting graph is acyclic by construction. Build never fails.
func Build(in models.NormalizedIntent) models.TaskGraph {
	var nodes []models.TaskNode

	if in.HasSignal(models.SignalBuild) {
		nodes = append(nodes,
			models.TaskNode{ID: "design", Objective: "Design component architecture", EstimatedComplexity: models.ComplexityMedium},
			models.TaskNode{ID: "implement", Objective: "Implement core functionality", Dependencies: []string{"design"}, EstimatedComplexity: models.ComplexityHigh},
			models.TaskNode{ID: "test", Objective: "Run verification and tests", Dependencies: []string{"implement"}, EstimatedComplexity: models.ComplexityLow},
			models.TaskNode{ID: "deploy", Objective: "Deploy and verify", Dependencies: []string{"test"}, EstimatedComplexity: models.ComplexityMedium},
		)
	}

	if in.HasSignal(models.SignalResearch) {
		nodes = append(nodes,
			models.TaskNode{ID: "scope", Objective: "Define research scope and questions", EstimatedComplexity: models.ComplexityLow},
			models.TaskNode{ID: "gather", Objective: "Gather data and sources", Dependencies: []string{"scope"}, Parallelizable: true, EstimatedComplexity: models.ComplexityMedium},
			models.TaskNode{ID: "analyze", Objective: "Analyze findings", Dependencies: []string{"gather"}, EstimatedComplexity: models.ComplexityHigh},
			models.TaskNode{ID: "report", Objective: "Compile and present results", Dependencies: []string{"analyze"}, EstimatedComplexity: models.ComplexityLow},
		)
	}

	if in.HasSignal(models.SignalWorkflow) {
		nodes = append(nodes,
			models.TaskNode{ID: "wf-design", Objective: "Design workflow architecture", EstimatedComplexity: models.ComplexityMedium},
			models.TaskNode{ID: "wf-author", Objective: "Author workflow stages", Dependencies: []string{"wf-design"}, EstimatedComplexity: models.ComplexityHigh},
			models.TaskNode{ID: "wf-validate", Objective: "Validate and test workflow", Dependencies: []string{"wf-author"}, EstimatedComplexity: models.ComplexityMedium},
		)
	}

	// CHAT and ESTIMATE carry no template chain; if nothing matched, emit a
	// single fallback node summarizing the request.
	if len(nodes) == 0 {
		objective := in.Normalized
		if objective == "" {
			objective = in.Raw
		}
		if len(objective) > maxFallbackObjective {
			objective = objective[:maxFallbackObjective]
		}
		nodes = append(nodes, models.TaskNode{
			ID:                  "process",
			Objective:           "Process: " + objective,
			EstimatedComplexity: models.ComplexityMedium,
		})
	}

	// Annotate every node when the request trails off without naming its
	// target. This never blocks graph construction.
	if hasUnresolvedTarget(in.Normalized) {
		for i := range nodes {
			nodes[i].MissingInputs = append(nodes[i].MissingInputs, missingTargetNote)
		}
	}

	var entryPoints []string
	for _, n := range nodes {
		if len(n.Dependencies) == 0 {
			entryPoints = append(entryPoints, n.ID)
		}
	}

	return models.TaskGraph{
		Nodes:        nodes,
		EntryPoints:  entryPoints,
		CriticalPath: CriticalPath(nodes),
		TotalNodes:   len(nodes),
	}
}

// hasUnresolvedTarget reports whether the text implies a target ("for")
// without a following object — i.e. "for" is the final meaningful token.
func hasUnresolvedTarget(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return false
	}
	last := strings.Trim(fields[len(fields)-1], ".,!?;:")
	return last == "for"
}
