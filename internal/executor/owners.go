package executor

import (
	"context"
	"fmt"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Owner is a built-in capability owner. Owners synthesize deterministic
// results for the step pipeline; production deployments replace or augment
// them with provider-backed executors (see AnthropicExecutor).
type Owner struct {
	id           string
	role         string
	capabilities []string
	usdPerToken  float64
}

// NewOwner creates a built-in owner with the given identity and capabilities.
func NewOwner(id, role string, capabilities ...string) *Owner {
	return &Owner{
		id:           id,
		role:         role,
		capabilities: capabilities,
		usdPerToken:  0.00003,
	}
}

// BuiltinOwners returns the standard capability owner set: one owner per
// routing domain plus a conversational owner.
func BuiltinOwners() []*Owner {
	return []*Owner{
		NewOwner("builder", "Engineering & delivery owner", "build", "workflow"),
		NewOwner("marketer", "Content & outreach owner", "marketing", "chat"),
		NewOwner("researcher", "Research & analysis owner", "research", "estimate"),
		NewOwner("reviewer", "Quality & verification owner", "quality"),
	}
}

// ID returns the owner identifier.
func (o *Owner) ID() string { return o.id }

// Capabilities returns the capability tags this owner serves.
func (o *Owner) Capabilities() []string {
	return append([]string(nil), o.capabilities...)
}

// Execute synthesizes a completed result for the described work. The token
// cost scales with the query size so cost accounting stays meaningful in
// tests and local runs.
func (o *Owner) Execute(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return FailOutput(in.TaskID, o.id, err.Error()), nil
	}

	tokens := int64(150 + len(in.Query)/4)
	summary := fmt.Sprintf("%s handled: %s", o.role, truncate(in.Query, 120))

	return Output{
		TaskID:     in.TaskID,
		ExecutorID: o.id,
		Status:     StatusSuccess,
		Result: Result{
			Summary:   summary,
			Artifacts: []string{fmt.Sprintf("[%s] %s", o.id, truncate(in.Query, 80))},
			Logs:      []string{fmt.Sprintf("%s: completed %q", o.id, truncate(in.Query, 60))},
		},
		Cost: models.Cost{Tokens: tokens, USD: float64(tokens) * o.usdPerToken},
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
