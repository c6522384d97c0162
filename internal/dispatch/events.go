// Package dispatch owns the task lifecycle: creation, asynchronous
// execution, lifecycle events, cancellation, and TTL eviction. The task
// store and subscriber registry are the only shared mutable state; each
// task has a single writer (its own dispatch goroutine) and any number of
// concurrent readers.
package dispatch

import (
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	// EventStatus reports a lifecycle transition.
	EventStatus EventType = "status"
	// EventProgress reports a human-readable progress note.
	EventProgress EventType = "progress"
	// EventArtifact reports one produced artifact.
	EventArtifact EventType = "artifact"
	// EventCost reports accumulated spend.
	EventCost EventType = "cost"
	// EventMessage reports an executor-authored message.
	EventMessage EventType = "message"
	// EventError reports an execution failure detail.
	EventError EventType = "error"
	// EventDone is always the last event for a task.
	EventDone EventType = "done"
)

// TaskEvent is one lifecycle event delivered to subscribers. Only the
// fields relevant to its Type are populated.
type TaskEvent struct {
	// TaskID identifies the task this event belongs to.
	TaskID string `json:"task_id"`
	// Type classifies the event.
	Type EventType `json:"type"`
	// Timestamp is when the event was produced.
	Timestamp time.Time `json:"timestamp"`
	// Status carries the new lifecycle state for status events.
	Status models.TaskStatus `json:"status,omitempty"`
	// Text carries progress notes, messages, and error details.
	Text string `json:"text,omitempty"`
	// Artifact carries the produced artifact for artifact events.
	Artifact *models.Artifact `json:"artifact,omitempty"`
	// Cost carries accumulated spend for cost events.
	Cost *models.Cost `json:"cost,omitempty"`
}
