package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelhq/kestrel/internal/audit"
	"github.com/kestrelhq/kestrel/internal/executor"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// StepStatus tracks one step through the pipeline.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepResult is the per-step record returned alongside the consolidated
// output. Owner is empty when the step ran inline.
type StepResult struct {
	Index       int
	Description string
	Owner       string
	Status      StepStatus
	Summary     string
	Score       models.StepScore
}

// Logger receives debug lines from the runner. dispatch.DebugLogger
// satisfies it.
type Logger interface {
	Logf(format string, args ...any)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Registry resolves routed owners. Required.
	Registry *executor.Registry
	// Routes is the routing table. Defaults to DefaultRoutes when nil.
	Routes []Route
	// MaxSteps caps the plan length when positive.
	MaxSteps int
	// Ledger receives step_executed audit entries when set.
	Ledger *audit.Ledger
	// Logger receives debug lines when set.
	Logger Logger
}

// Runner executes a step plan strictly in order, delegating routed steps to
// registered owners and running unmatched steps inline. It is itself an
// executor so the dispatcher can register it like any other capability owner.
type Runner struct {
	registry *executor.Registry
	routes   []Route
	maxSteps int
	ledger   *audit.Ledger
	logger   Logger
}

// Inline steps bill a flat token charge at the default per-token rate.
const (
	inlineStepTokens = 100
	inlineTokenRate  = 0.00003
)

// NewRunner creates a Runner from the given configuration.
func NewRunner(cfg RunnerConfig) *Runner {
	routes := cfg.Routes
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &Runner{
		registry: cfg.Registry,
		routes:   routes,
		maxSteps: cfg.MaxSteps,
		ledger:   cfg.Ledger,
		logger:   cfg.Logger,
	}
}

// ID returns the executor identifier.
func (r *Runner) ID() string { return "pipeline" }

// Capabilities returns every capability the pipeline can plan for.
func (r *Runner) Capabilities() []string {
	return []string{"build", "research", "chat", "workflow", "estimate"}
}

// Execute plans and runs the step pipeline for the given work. A failed step
// does not halt the remaining steps, but any failure marks the whole run
// failed once all steps have run.
func (r *Runner) Execute(ctx context.Context, in executor.Input) (executor.Output, error) {
	out, _, err := r.Run(ctx, in)
	return out, err
}

// Run is Execute plus the per-step records, for callers that track step
// level state.
func (r *Runner) Run(ctx context.Context, in executor.Input) (executor.Output, []StepResult, error) {
	steps := in.Steps
	if len(steps) == 0 {
		steps = DeriveSteps(in.Capability, in.Query)
	} else {
		steps = EnsureRoutable(r.routes, steps)
	}
	if r.maxSteps > 0 && len(steps) > r.maxSteps {
		steps = steps[:r.maxSteps]
	}

	r.logf("pipeline %s: %d steps planned", in.TaskID, len(steps))

	results, artifacts, logs, cost := r.runSteps(ctx, in, steps)

	completed, failed := 0, 0
	for _, sr := range results {
		switch sr.Status {
		case StepCompleted:
			completed++
		case StepFailed:
			failed++
		}
	}

	summary := strings.Join([]string{
		fmt.Sprintf("Pipeline: %d steps", len(steps)),
		fmt.Sprintf("Completed: %d, Failed: %d", completed, failed),
		fmt.Sprintf("Artifacts: %d", len(artifacts)),
		fmt.Sprintf("Cost: %d tokens ($%.4f)", cost.Tokens, cost.USD),
	}, "\n")

	status := executor.StatusSuccess
	if failed > 0 {
		status = executor.StatusFailure
	}

	return executor.Output{
		TaskID:     in.TaskID,
		ExecutorID: r.ID(),
		Status:     status,
		Result: executor.Result{
			Summary:   summary,
			Artifacts: artifacts,
			Logs:      logs,
		},
		Cost: cost,
	}, results, nil
}

func (r *Runner) runSteps(ctx context.Context, in executor.Input, steps []string) ([]StepResult, []string, []string, models.Cost) {
	results := make([]StepResult, len(steps))
	var artifacts, logs []string
	var total models.Cost

	for i, desc := range steps {
		owner, routed := ResolveOwner(r.routes, desc)
		sr := StepResult{Index: i, Description: desc, Owner: owner, Status: StepRunning}

		if err := ctx.Err(); err != nil {
			sr.Status = StepFailed
			sr.Summary = "canceled before execution"
			logs = append(logs, fmt.Sprintf("[Step %d] FAILED: %s", i, sr.Summary))
			results[i] = sr
			continue
		}

		r.logf("pipeline %s: step %d owner=%q %s", in.TaskID, i, owner, desc)

		var out executor.Output
		switch {
		case routed:
			exec, found := r.registry.Get(owner)
			if !found {
				// Routed owner missing from the registry: run inline.
				out = r.inlineStep(in.TaskID, i, desc)
				sr.Owner = ""
				break
			}
			stepIn := executor.Input{
				TaskID:     fmt.Sprintf("%s-step-%d", in.TaskID, i),
				Capability: in.Capability,
				Query:      desc + " | Context: " + in.Query,
				Context:    in.Context,
			}
			var err error
			out, err = exec.Execute(ctx, stepIn)
			if err != nil {
				out = executor.FailOutput(stepIn.TaskID, owner, err.Error())
			}
		default:
			out = r.inlineStep(in.TaskID, i, desc)
		}

		sr.Score = heuristicScore(out)
		sr.Summary = out.Result.Summary

		if out.Status == executor.StatusSuccess {
			sr.Status = StepCompleted
			artifacts = append(artifacts, out.Result.Artifacts...)
			if sr.Owner != "" {
				logs = append(logs, fmt.Sprintf("[Step %d] %s: %s", i, sr.Owner, out.Result.Summary))
			} else {
				logs = append(logs, fmt.Sprintf("[Step %d] pipeline (direct): %s", i, desc))
			}
			total.Add(out.Cost)
		} else {
			sr.Status = StepFailed
			logs = append(logs, fmt.Sprintf("[Step %d] FAILED: %s", i, out.Result.Summary))
		}

		if r.ledger != nil {
			r.ledger.Record("pipeline", audit.ActionStepExecuted, map[string]any{
				"taskId": in.TaskID,
				"step":   i,
				"owner":  sr.Owner,
				"status": string(sr.Status),
				"score":  sr.Score.Total(),
			}, out.Cost)
		}

		results[i] = sr
	}

	return results, artifacts, logs, total
}

// inlineStep handles a step with no matching owner directly.
func (r *Runner) inlineStep(taskID string, index int, desc string) executor.Output {
	return executor.Output{
		TaskID:     fmt.Sprintf("%s-step-%d", taskID, index),
		ExecutorID: r.ID(),
		Status:     executor.StatusSuccess,
		Result: executor.Result{
			Summary:   desc,
			Artifacts: []string{fmt.Sprintf("[step-%d] %s", index, desc)},
			Logs:      []string{fmt.Sprintf("[Step %d] pipeline (direct): %s", index, desc)},
		},
		Cost: models.Cost{Tokens: inlineStepTokens, USD: inlineStepTokens * inlineTokenRate},
	}
}

// heuristicScore grades one step output on completion, evidence, and cost.
func heuristicScore(out executor.Output) models.StepScore {
	completion := 1
	if out.Status == executor.StatusSuccess {
		completion = 3
	}

	evidence := 1
	if len(out.Result.Artifacts) > 0 {
		evidence++
	}
	if len(out.Result.Logs) > 0 {
		evidence++
	}

	costDiscipline := 1
	switch {
	case out.Cost.USD < 0.10:
		costDiscipline = 3
	case out.Cost.USD < 0.50:
		costDiscipline = 2
	}

	return models.StepScore{
		Completion:     completion,
		Evidence:       evidence,
		CostDiscipline: costDiscipline,
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Logf(format, args...)
	}
}
