package governance

import (
	"github.com/kestrelhq/kestrel/internal/scope"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// DefaultUSDPerToken is the fixed per-token rate used when no override is
// configured.
const DefaultUSDPerToken = 0.00003

// tokensPerNode is the execution budget attributed to each graph node.
const tokensPerNode = 1500

// Token-class bucket boundaries, purely from node count.
const (
	lightMaxNodes    = 2
	standardMaxNodes = 4
	heavyMaxNodes    = 8
)

// High-cost advisory flags. They annotate the estimate for observability and
// billing attribution and never alter clearance.
const (
	flagMultiSource    = "MULTI_SOURCE_DATA: implicated domains cross-reference multiple upstream sources"
	flagDeepChain      = "DEEP_CHAIN: execution depth exceeds 4 — cost compounds per hop"
	flagHighTokenCount = "HIGH_TOKEN_COUNT: estimate exceeds 50k tokens"
)

const (
	deepChainDepth     = 4
	highTokenThreshold = 50000
)

// EstimateCost predicts the token and dollar spend for a decomposed request.
// The token class is bucketed purely from node count, independent of risk.
func EstimateCost(g models.TaskGraph, bundle models.ContextBundle, usdPerToken float64) models.CostEstimate {
	if usdPerToken <= 0 {
		usdPerToken = DefaultUSDPerToken
	}

	var class models.TokenClass
	switch {
	case g.TotalNodes <= lightMaxNodes:
		class = models.TokenClassLight
	case g.TotalNodes <= standardMaxNodes:
		class = models.TokenClassStandard
	case g.TotalNodes <= heavyMaxNodes:
		class = models.TokenClassHeavy
	default:
		class = models.TokenClassEnterprise
	}

	estimatedTokens := g.TotalNodes*tokensPerNode + bundle.PayloadSizeTokens
	depth := len(g.CriticalPath)

	var flags []string
	if scope.MultiSource(bundle) {
		flags = append(flags, flagMultiSource)
	}
	if depth > deepChainDepth {
		flags = append(flags, flagDeepChain)
	}
	if estimatedTokens > highTokenThreshold {
		flags = append(flags, flagHighTokenCount)
	}

	return models.CostEstimate{
		TokenClass:      class,
		EstimatedTokens: estimatedTokens,
		EstimatedUSD:    float64(estimatedTokens) * usdPerToken,
		ExecutionDepth:  depth,
		HighCostFlags:   flags,
	}
}
