package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kestrelhq/kestrel/internal/audit"
	"github.com/kestrelhq/kestrel/internal/executor"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// stubOwner is a configurable in-test executor.
type stubOwner struct {
	id    string
	fail  bool
	err   error
	calls []string
}

func (s *stubOwner) ID() string             { return s.id }
func (s *stubOwner) Capabilities() []string { return nil }

func (s *stubOwner) Execute(ctx context.Context, in executor.Input) (executor.Output, error) {
	s.calls = append(s.calls, in.Query)
	if s.err != nil {
		return executor.Output{}, s.err
	}
	if s.fail {
		return executor.FailOutput(in.TaskID, s.id, "owner rejected the step"), nil
	}
	return executor.Output{
		TaskID:     in.TaskID,
		ExecutorID: s.id,
		Status:     executor.StatusSuccess,
		Result: executor.Result{
			Summary:   "handled " + in.Query,
			Artifacts: []string{"[" + s.id + "] artifact"},
			Logs:      []string{s.id + " log"},
		},
		Cost: models.Cost{Tokens: 200, USD: 0.006},
	}, nil
}

func newTestRunner(owners ...*stubOwner) (*Runner, *executor.Registry) {
	reg := executor.NewRegistry()
	for _, o := range owners {
		reg.Register(o)
	}
	return NewRunner(RunnerConfig{Registry: reg}), reg
}

func TestRunFailedStepDoesNotHaltPipeline(t *testing.T) {
	builder := &stubOwner{id: "builder"}
	marketer := &stubOwner{id: "marketer"}
	researcher := &stubOwner{id: "researcher", fail: true}
	reviewer := &stubOwner{id: "reviewer"}
	r, _ := newTestRunner(builder, marketer, researcher, reviewer)

	steps := []string{
		"Implement api endpoints",
		"Write campaign copy",
		"Research market landscape",
		"Run security review",
		"Deploy release candidate",
	}

	out, results, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-1",
		Capability: "build",
		Query:      "launch the product",
		Steps:      steps,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(results) != 5 {
		t.Fatalf("expected 5 step results, got %d", len(results))
	}
	wantStatus := []StepStatus{StepCompleted, StepCompleted, StepFailed, StepCompleted, StepCompleted}
	for i, want := range wantStatus {
		if results[i].Status != want {
			t.Errorf("step %d status = %q, want %q", i, results[i].Status, want)
		}
	}

	// Steps after the failure still reached their owners.
	if len(reviewer.calls) != 1 {
		t.Errorf("reviewer should have run after the failed step, calls=%d", len(reviewer.calls))
	}
	if len(builder.calls) != 2 {
		t.Errorf("builder should have run steps 0 and 4, calls=%d", len(builder.calls))
	}

	if out.Status != executor.StatusFailure {
		t.Errorf("any failed step must fail the whole pipeline, got %q", out.Status)
	}

	// Cost and artifacts come only from completed steps.
	if out.Cost.Tokens != 4*200 {
		t.Errorf("expected 800 tokens from 4 completed steps, got %d", out.Cost.Tokens)
	}
	if len(out.Result.Artifacts) != 4 {
		t.Errorf("expected 4 artifacts, got %d", len(out.Result.Artifacts))
	}
}

func TestRunStepsSequentialHandOff(t *testing.T) {
	builder := &stubOwner{id: "builder"}
	r, _ := newTestRunner(builder)

	_, _, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-2",
		Capability: "build",
		Query:      "ship the feature",
		Steps:      []string{"Implement the api", "Deploy the api"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(builder.calls) != 2 {
		t.Fatalf("expected 2 owner calls, got %d", len(builder.calls))
	}
	for i, q := range builder.calls {
		if !strings.Contains(q, "| Context: ship the feature") {
			t.Errorf("call %d missing task context: %q", i, q)
		}
	}
	if !strings.HasPrefix(builder.calls[0], "Implement the api") ||
		!strings.HasPrefix(builder.calls[1], "Deploy the api") {
		t.Errorf("steps must run in plan order, got %v", builder.calls)
	}
}

func TestRunDerivesPlanWhenNoStepsSupplied(t *testing.T) {
	r, _ := newTestRunner(&stubOwner{id: "builder"}, &stubOwner{id: "researcher"}, &stubOwner{id: "reviewer"})

	out, results, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-3",
		Capability: "chat",
		Query:      "explain the pricing model",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("chat capability derives 3 steps, got %d", len(results))
	}
	if out.Status != executor.StatusSuccess {
		t.Errorf("expected success, got %q", out.Status)
	}
}

func TestRunUnmatchedStepRunsInline(t *testing.T) {
	r, _ := newTestRunner()

	// The derived workflow plan includes "Parse workflow definition", which
	// has no routing keyword and must run inline.
	out, results, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-4",
		Capability: "workflow",
		Query:      "nightly sync",
	})
	if err != nil {
		t.Fatal(err)
	}

	var sawInline bool
	for _, sr := range results {
		if sr.Owner == "" && sr.Status == StepCompleted {
			sawInline = true
		}
	}
	if !sawInline {
		t.Error("expected at least one inline step in the derived workflow plan")
	}
	if out.Cost.Tokens == 0 {
		t.Error("inline steps must still bill tokens")
	}
}

func TestRunRoutedOwnerMissingFallsBackInline(t *testing.T) {
	// Registry has no builder, so a build-routed step runs inline.
	r, _ := newTestRunner()

	out, results, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-5",
		Capability: "build",
		Query:      "q",
		Steps:      []string{"Deploy the service"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != StepCompleted || results[0].Owner != "" {
		t.Errorf("missing owner should run inline, got %+v", results[0])
	}
	if out.Cost.Tokens != inlineStepTokens {
		t.Errorf("expected flat inline charge, got %d", out.Cost.Tokens)
	}
}

func TestRunOwnerErrorBecomesStepFailure(t *testing.T) {
	researcher := &stubOwner{id: "researcher", err: errors.New("connection reset")}
	r, _ := newTestRunner(researcher)

	out, results, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-6",
		Capability: "research",
		Query:      "q",
		Steps:      []string{"Research the market"},
	})
	if err != nil {
		t.Fatalf("owner errors must not escape the runner: %v", err)
	}
	if results[0].Status != StepFailed {
		t.Errorf("owner error should fail the step, got %q", results[0].Status)
	}
	if out.Status != executor.StatusFailure {
		t.Errorf("expected failed pipeline, got %q", out.Status)
	}
}

func TestRunMaxStepsCapsPlan(t *testing.T) {
	reg := executor.NewRegistry()
	reg.Register(&stubOwner{id: "builder"})
	r := NewRunner(RunnerConfig{Registry: reg, MaxSteps: 2})

	_, results, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-7",
		Capability: "build",
		Query:      "q",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected plan capped at 2 steps, got %d", len(results))
	}
}

func TestRunRecordsAuditEntries(t *testing.T) {
	reg := executor.NewRegistry()
	reg.Register(&stubOwner{id: "builder"})
	ledger := audit.NewLedger()
	r := NewRunner(RunnerConfig{Registry: reg, Ledger: ledger})

	_, results, err := r.Run(context.Background(), executor.Input{
		TaskID:     "task-8",
		Capability: "build",
		Query:      "q",
		Steps:      []string{"Implement api", "Deploy it"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := ledger.Stats().ChainLength; got != len(results) {
		t.Errorf("expected one audit entry per step, got %d for %d steps", got, len(results))
	}
	if err := ledger.Verify(); err != nil {
		t.Errorf("audit chain should verify: %v", err)
	}
}

func TestHeuristicScore(t *testing.T) {
	success := executor.Output{
		Status: executor.StatusSuccess,
		Result: executor.Result{Artifacts: []string{"a"}, Logs: []string{"l"}},
		Cost:   models.Cost{USD: 0.01},
	}
	score := heuristicScore(success)
	if score.Completion != 3 || score.Evidence != 3 || score.CostDiscipline != 3 {
		t.Errorf("full-evidence cheap success should max the score, got %+v", score)
	}

	failure := heuristicScore(executor.Output{Status: executor.StatusFailure, Cost: models.Cost{USD: 1.0}})
	if failure.Completion != 1 || failure.Evidence != 1 || failure.CostDiscipline != 1 {
		t.Errorf("bare failure should bottom out, got %+v", failure)
	}
	if !score.Valid() || !failure.Valid() {
		t.Error("heuristic scores must stay in range")
	}
}
