// Package executor defines the contract between the dispatcher and the
// capability owners that perform work, plus a registry to resolve them.
package executor

import (
	"context"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Status is the outcome reported by an executor.
type Status string

const (
	// StatusSuccess indicates the executor finished its work.
	StatusSuccess Status = "success"
	// StatusFailure indicates the executor could not finish.
	StatusFailure Status = "failure"
)

// Input is the work handed to an executor.
type Input struct {
	// TaskID identifies the owning task (or task-step) for tracing.
	TaskID string
	// Capability is the capability the work was matched against.
	Capability string
	// Query is the textual work description.
	Query string
	// Context carries small key→value hints from the packet's scoped context.
	Context map[string]string
	// Steps is an optional explicit step plan. When empty, pipeline-style
	// executors derive a default plan from Capability.
	Steps []string
}

// Result is the consolidated product of an execution.
type Result struct {
	// Summary is a short human-readable account of what was done.
	Summary string
	// Artifacts lists produced outputs as strings.
	Artifacts []string
	// Logs lists progress lines recorded along the way.
	Logs []string
}

// Output is the full report an executor returns.
type Output struct {
	// TaskID echoes the input task ID.
	TaskID string
	// ExecutorID identifies the executor that produced this output.
	ExecutorID string
	// Status is the outcome.
	Status Status
	// Result is the consolidated product.
	Result Result
	// Cost is the spend attributed to this execution.
	Cost models.Cost
}

// Executor is a capability owner that can run work.
// Execute returns an error only for infrastructure failures; domain-level
// failure is reported through Output.Status so partial results survive.
type Executor interface {
	// ID returns the unique executor identifier.
	ID() string
	// Capabilities returns the capability tags this executor serves.
	Capabilities() []string
	// Execute runs the work. Implementations must honor ctx cancellation
	// on any blocking operation.
	Execute(ctx context.Context, in Input) (Output, error)
}

// FailOutput builds a failure report with the given message as summary.
func FailOutput(taskID, executorID, msg string) Output {
	return Output{
		TaskID:     taskID,
		ExecutorID: executorID,
		Status:     StatusFailure,
		Result:     Result{Summary: msg},
	}
}
