// Package packet assembles execution packets: one request in, one immutable
// aggregate of normalized intent, task graph, scoped context, governance
// verdict, cost estimate, and routing decision out. Building a packet is
// pure and side-effect-free; a blocked packet is a normal result, not an
// error.
package packet

import (
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/internal/governance"
	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/scope"
	"github.com/kestrelhq/kestrel/internal/taskgraph"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// hybridBuildNodes is the graph size past which a build request is split
// across owners instead of running through one.
const hybridBuildNodes = 3

// Builder runs the full governance pipeline for raw requests.
type Builder struct {
	clock       func() time.Time
	usdPerToken float64
}

// NewBuilder creates a Builder using the system clock and the default
// per-token rate.
func NewBuilder() *Builder {
	return &Builder{clock: time.Now, usdPerToken: governance.DefaultUSDPerToken}
}

// NewBuilderWith creates a Builder with an injected clock and token rate.
// A nil clock falls back to time.Now; a non-positive rate falls back to the
// default.
func NewBuilderWith(clock func() time.Time, usdPerToken float64) *Builder {
	b := NewBuilder()
	if clock != nil {
		b.clock = clock
	}
	if usdPerToken > 0 {
		b.usdPerToken = usdPerToken
	}
	return b
}

// BuildExecutionPacket runs Normalizer → Graph Builder → Context Shaper →
// Governance Gate → Router and returns the assembled packet. It never fails:
// hostile input produces a packet whose policy carries the blockers.
func (b *Builder) BuildExecutionPacket(rawMessage, requestedBy string) models.ExecutionPacket {
	normalized := intent.Normalize(rawMessage)
	graph := taskgraph.Build(normalized)
	bundle := scope.Shape(normalized, graph)
	policy := governance.EvaluatePolicy(normalized, graph, bundle)
	cost := governance.EstimateCost(graph, bundle, b.usdPerToken)
	routing := Route(normalized, graph, cost)

	return models.ExecutionPacket{
		PacketID:  uuid.NewString(),
		Intent:    normalized,
		Graph:     graph,
		Context:   bundle,
		Policy:    policy,
		Cost:      cost,
		Routing:   routing,
		Timestamp: b.clock().UTC(),
	}
}

// Route selects the execution engine and owner for a packet. Workflow
// requests go to the workflow engine; large builds and enterprise-class
// spend split across owners. Research routes to the researcher, chat to the
// marketer; everything else runs through the step pipeline with the builder
// as fallback.
func Route(in models.NormalizedIntent, g models.TaskGraph, cost models.CostEstimate) models.RoutingDecision {
	engine := models.EngineDirect
	switch {
	case in.HasSignal(models.SignalWorkflow):
		engine = models.EngineWorkflow
	case in.HasSignal(models.SignalBuild) && g.TotalNodes > hybridBuildNodes:
		engine = models.EngineHybrid
	case cost.TokenClass == models.TokenClassEnterprise:
		engine = models.EngineHybrid
	}

	switch {
	case in.HasSignal(models.SignalResearch):
		return models.RoutingDecision{Engine: engine, ExecutionOwner: "researcher", Fallback: "pipeline"}
	case in.HasSignal(models.SignalChat) && len(in.Signals) == 1:
		return models.RoutingDecision{Engine: engine, ExecutionOwner: "marketer", Fallback: "pipeline"}
	default:
		return models.RoutingDecision{Engine: engine, ExecutionOwner: "pipeline", Fallback: "builder"}
	}
}
