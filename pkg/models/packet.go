package models

import "time"

// RiskLevel classifies how dangerous a request is to execute.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank returns the ordering of the risk level, LOW lowest.
// Unknown levels rank above CRITICAL so they are never silently downgraded.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 4
	}
}

// TokenClass buckets the expected token spend of a request.
type TokenClass string

const (
	TokenClassLight      TokenClass = "LIGHT"
	TokenClassStandard   TokenClass = "STANDARD"
	TokenClassHeavy      TokenClass = "HEAVY"
	TokenClassEnterprise TokenClass = "ENTERPRISE"
)

// ContextBundle summarizes the knowledge context a request implicates.
// ScopedContext is deliberately minimized — never the full raw text.
type ContextBundle struct {
	// Domains lists the knowledge domains implicated by the request.
	Domains []string `json:"domains"`
	// ScopedContext is a small key→value summary for downstream consumers.
	ScopedContext map[string]string `json:"scoped_context"`
	// PayloadSizeTokens is the estimated token size of the scoped context.
	PayloadSizeTokens int `json:"payload_size_tokens"`
	// Sources lists the logical origin tag for each detected domain.
	Sources []string `json:"sources"`
}

// HasDomain returns true if the bundle implicates the given domain.
func (c ContextBundle) HasDomain(domain string) bool {
	for _, d := range c.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// PolicyManifest is the governance verdict for one request.
// Clearance and risk are independent axes: a LOW-risk packet can still be
// blocked, and a CRITICAL packet can be cleared.
type PolicyManifest struct {
	// Cleared is the gate verdict. False whenever Blockers is non-empty.
	Cleared bool `json:"cleared"`
	// RiskLevel is the classified risk.
	RiskLevel RiskLevel `json:"risk_level"`
	// Permissions lists granted capability tags (READ, EXECUTE, ...).
	Permissions []string `json:"permissions"`
	// SandboxRequired is true iff risk is HIGH or CRITICAL.
	SandboxRequired bool `json:"sandbox_required"`
	// ToolsEligible lists capability names this packet may invoke.
	ToolsEligible []string `json:"tools_eligible"`
	// Blockers lists human-readable reasons preventing clearance.
	Blockers []string `json:"blockers"`
}

// CostEstimate is the pre-execution cost prediction for one request.
type CostEstimate struct {
	// TokenClass buckets the spend purely from graph size.
	TokenClass TokenClass `json:"token_class"`
	// EstimatedTokens is the predicted total token count.
	EstimatedTokens int `json:"estimated_tokens"`
	// EstimatedUSD is the predicted dollar cost.
	EstimatedUSD float64 `json:"estimated_usd"`
	// ExecutionDepth is the critical-path length of the task graph.
	ExecutionDepth int `json:"execution_depth"`
	// HighCostFlags are advisory annotations that never alter clearance.
	HighCostFlags []string `json:"high_cost_flags"`
}

// Engine selects the execution strategy for a cleared packet.
type Engine string

const (
	// EngineDirect runs the packet through a single capability owner.
	EngineDirect Engine = "DIRECT"
	// EngineWorkflow runs the packet through the workflow runner.
	EngineWorkflow Engine = "WORKFLOW"
	// EngineHybrid splits the packet across multiple owners.
	EngineHybrid Engine = "HYBRID"
)

// RoutingDecision names the chosen engine and execution owner for a packet.
type RoutingDecision struct {
	// Engine is the chosen execution strategy.
	Engine Engine `json:"engine"`
	// ExecutionOwner is the executor ID that should run the packet.
	ExecutionOwner string `json:"execution_owner"`
	// Fallback is an optional secondary owner, empty when none applies.
	Fallback string `json:"fallback,omitempty"`
}

// ExecutionPacket is the immutable aggregate handed from the governance
// pipeline to the dispatcher. One packet is built per request and never
// mutated afterwards.
type ExecutionPacket struct {
	// PacketID uniquely identifies this packet.
	PacketID string `json:"packet_id"`
	// Intent is the normalized form of the originating request.
	Intent NormalizedIntent `json:"normalized_intent"`
	// Graph is the dependency DAG of atomic objectives.
	Graph TaskGraph `json:"task_graph"`
	// Context is the minimized knowledge context.
	Context ContextBundle `json:"context_bundle"`
	// Policy is the governance verdict.
	Policy PolicyManifest `json:"policy_manifest"`
	// Cost is the pre-execution cost prediction.
	Cost CostEstimate `json:"cost_estimate"`
	// Routing names the chosen engine and owner.
	Routing RoutingDecision `json:"routing_decision"`
	// Timestamp is when the packet was built.
	Timestamp time.Time `json:"timestamp"`
}
