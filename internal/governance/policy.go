// Package governance classifies risk, grants or denies clearance, and
// estimates cost for a decomposed request. Both evaluations are pure
// functions: they never fail and never block.
package governance

import (
	"strings"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Permission tags granted in the policy manifest.
const (
	PermissionRead        = "READ"
	PermissionExecute     = "EXECUTE"
	PermissionDestructive = "DESTRUCTIVE"
	PermissionDeploy      = "DEPLOY"
)

// destructiveKeywords force HIGH risk and grant the DESTRUCTIVE permission.
var destructiveKeywords = []string{"delete", "remove", "drop"}

// deployKeywords promote LOW risk to MEDIUM and grant the DEPLOY permission.
var deployKeywords = []string{"deploy", "push", "publish"}

// Graph-size thresholds in the risk rule chain.
const (
	mediumRiskNodeCount   = 6
	criticalRiskNodeCount = 10
)

// toolsBySignal lists the capability names a packet may invoke per signal.
var toolsBySignal = map[models.Signal][]string{
	models.SignalBuild:    {"build", "quality"},
	models.SignalResearch: {"research"},
	models.SignalWorkflow: {"workflow"},
	models.SignalChat:     {"chat"},
	models.SignalEstimate: {"estimate"},
}

// blockerNoClearIntent is the only blocker the gate emits. Clearance and
// risk are independent axes: blockers force cleared=false at any risk level.
const blockerNoClearIntent = "cannot proceed without a clear intent signal — ask the requester to clarify"

// EvaluatePolicy runs the deterministic, order-sensitive risk rule chain and
// produces the governance verdict for a request.
func EvaluatePolicy(in models.NormalizedIntent, g models.TaskGraph, _ models.ContextBundle) models.PolicyManifest {
	lower := strings.ToLower(in.Normalized)
	permissions := []string{PermissionRead, PermissionExecute}

	risk := models.RiskLow
	if containsAny(lower, destructiveKeywords) {
		risk = models.RiskHigh
		permissions = append(permissions, PermissionDestructive)
	}
	if containsAny(lower, deployKeywords) {
		if risk == models.RiskLow {
			risk = models.RiskMedium
		}
		permissions = append(permissions, PermissionDeploy)
	}
	if g.TotalNodes > mediumRiskNodeCount && risk == models.RiskLow {
		risk = models.RiskMedium
	}
	if risk == models.RiskHigh && g.TotalNodes > criticalRiskNodeCount {
		risk = models.RiskCritical
	}

	var tools []string
	for _, sig := range in.Signals {
		tools = append(tools, toolsBySignal[sig]...)
	}

	var blockers []string
	if in.HasAmbiguity(models.AmbiguityNoClearIntent) {
		blockers = append(blockers, blockerNoClearIntent)
	}

	return models.PolicyManifest{
		Cleared:         len(blockers) == 0,
		RiskLevel:       risk,
		Permissions:     permissions,
		SandboxRequired: risk == models.RiskHigh || risk == models.RiskCritical,
		ToolsEligible:   tools,
		Blockers:        blockers,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
