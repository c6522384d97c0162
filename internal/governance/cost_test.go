package governance

import (
	"testing"

	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/scope"
	"github.com/kestrelhq/kestrel/internal/taskgraph"
	"github.com/kestrelhq/kestrel/pkg/models"
)

func TestCostTokenClassBuckets(t *testing.T) {
	tests := []struct {
		nodes int
		want  models.TokenClass
	}{
		{1, models.TokenClassLight},
		{2, models.TokenClassLight},
		{3, models.TokenClassStandard},
		{4, models.TokenClassStandard},
		{5, models.TokenClassHeavy},
		{8, models.TokenClassHeavy},
		{9, models.TokenClassEnterprise},
		{15, models.TokenClassEnterprise},
	}
	for _, tt := range tests {
		got := EstimateCost(graphOfSize(tt.nodes), models.ContextBundle{}, 0)
		if got.TokenClass != tt.want {
			t.Errorf("nodes=%d: class = %s, want %s", tt.nodes, got.TokenClass, tt.want)
		}
	}
}

func TestCostEstimatedTokensFormula(t *testing.T) {
	bundle := models.ContextBundle{PayloadSizeTokens: 700}
	got := EstimateCost(graphOfSize(4), bundle, 0)

	want := 4*tokensPerNode + 700
	if got.EstimatedTokens != want {
		t.Errorf("tokens = %d, want %d", got.EstimatedTokens, want)
	}

	wantUSD := float64(want) * DefaultUSDPerToken
	if diff := got.EstimatedUSD - wantUSD; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("usd = %f, want %f", got.EstimatedUSD, wantUSD)
	}
}

// estimatedTokens is monotonically non-decreasing in node count for a
// fixed context size.
func TestCostTokensMonotonicInNodeCount(t *testing.T) {
	bundle := models.ContextBundle{PayloadSizeTokens: 1234}
	prev := -1
	for n := 1; n <= 20; n++ {
		got := EstimateCost(graphOfSize(n), bundle, 0)
		if got.EstimatedTokens < prev {
			t.Fatalf("tokens decreased at n=%d: %d < %d", n, got.EstimatedTokens, prev)
		}
		prev = got.EstimatedTokens
	}
}

func TestCostExecutionDepth(t *testing.T) {
	got := EstimateCost(graphOfSize(5), models.ContextBundle{}, 0)
	if got.ExecutionDepth != 5 {
		t.Errorf("depth = %d, want 5 for a linear chain", got.ExecutionDepth)
	}
}

func TestCostHighCostFlags(t *testing.T) {
	// Deep chain: linear graph of 5 has depth 5 > 4.
	deep := EstimateCost(graphOfSize(5), models.ContextBundle{}, 0)
	if !hasFlag(deep.HighCostFlags, "DEEP_CHAIN") {
		t.Errorf("expected DEEP_CHAIN flag, got %v", deep.HighCostFlags)
	}

	// Token threshold: big payload pushes the estimate past 50k.
	heavy := EstimateCost(graphOfSize(2), models.ContextBundle{PayloadSizeTokens: 60000}, 0)
	if !hasFlag(heavy.HighCostFlags, "HIGH_TOKEN_COUNT") {
		t.Errorf("expected HIGH_TOKEN_COUNT flag, got %v", heavy.HighCostFlags)
	}

	// Multi-source domain bundles are flagged.
	in := intent.Normalize("analyze the analytics dataset")
	bundle := scope.Shape(in, models.TaskGraph{TotalNodes: 2})
	multi := EstimateCost(graphOfSize(2), bundle, 0)
	if !hasFlag(multi.HighCostFlags, "MULTI_SOURCE_DATA") {
		t.Errorf("expected MULTI_SOURCE_DATA flag, got %v", multi.HighCostFlags)
	}

	// Small, single-source, shallow graphs carry no flags.
	calm := EstimateCost(graphOfSize(2), models.ContextBundle{}, 0)
	if len(calm.HighCostFlags) != 0 {
		t.Errorf("expected no flags, got %v", calm.HighCostFlags)
	}
}

// High-cost flags never alter clearance.
func TestCostFlagsDoNotAffectClearance(t *testing.T) {
	in := intent.Normalize("research the analytics dataset trends")
	g := taskgraph.Build(in)
	bundle := scope.Shape(in, g)

	p := EvaluatePolicy(in, g, bundle)
	c := EstimateCost(g, bundle, 0)

	if len(c.HighCostFlags) == 0 {
		t.Fatal("test expects at least one flag")
	}
	if !p.Cleared {
		t.Errorf("flags must not block clearance: %v", p.Blockers)
	}
}

// Scenario: a chat-only request yields one fallback-or-chat node and the
// LIGHT token class.
func TestScenarioExplainRefundsIsLight(t *testing.T) {
	in := intent.Normalize("explain how refunds work")
	if len(in.Signals) != 1 || in.Signals[0] != models.SignalChat {
		t.Fatalf("signals = %v, want [CHAT]", in.Signals)
	}

	g := taskgraph.Build(in)
	if g.TotalNodes != 1 {
		t.Fatalf("expected single node, got %d", g.TotalNodes)
	}

	c := EstimateCost(g, scope.Shape(in, g), 0)
	if c.TokenClass != models.TokenClassLight {
		t.Errorf("class = %s, want LIGHT", c.TokenClass)
	}
}

func hasFlag(flags []string, prefix string) bool {
	for _, f := range flags {
		if len(f) >= len(prefix) && f[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
