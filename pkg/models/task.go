package models

import "time"

// TaskStatus represents the current state of a dispatched task.
type TaskStatus string

const (
	// TaskStatusSubmitted indicates the task was created but has not started.
	TaskStatusSubmitted TaskStatus = "submitted"
	// TaskStatusWorking indicates the task is being executed.
	TaskStatusWorking TaskStatus = "working"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task finished with a failure.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCanceled indicates the task was canceled before finishing.
	TaskStatusCanceled TaskStatus = "canceled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusSubmitted, TaskStatusWorking, TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no transition leaves this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// submitted → working|canceled; working → completed|failed|canceled;
// terminal states permit nothing.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusSubmitted:
		return next == TaskStatusWorking || next == TaskStatusCanceled
	case TaskStatusWorking:
		return next == TaskStatusCompleted || next == TaskStatusFailed || next == TaskStatusCanceled
	default:
		return false
	}
}

// MessageRole identifies who authored a task message.
type MessageRole string

const (
	// RoleUser marks the initiating request message.
	RoleUser MessageRole = "user"
	// RoleExecutor marks output authored by the executing owner.
	RoleExecutor MessageRole = "executor"
)

// Message is one entry in a task's conversation-style log.
type Message struct {
	// Role identifies the author.
	Role MessageRole `json:"role"`
	// Text is the message content.
	Text string `json:"text"`
	// Timestamp is when the message was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Artifact is a tracked output produced during task execution.
type Artifact struct {
	// ID uniquely identifies the artifact.
	ID string `json:"id"`
	// Name is a short human-readable label.
	Name string `json:"name"`
	// Type describes the artifact content kind (currently always "text").
	Type string `json:"type"`
	// Content is the artifact payload.
	Content string `json:"content"`
}

// Cost tracks accumulated token and dollar spend.
type Cost struct {
	// Tokens is the accumulated token count.
	Tokens int64 `json:"tokens"`
	// USD is the accumulated dollar cost.
	USD float64 `json:"usd"`
}

// Add accumulates another cost into this one.
func (c *Cost) Add(other Cost) {
	c.Tokens += other.Tokens
	c.USD += other.USD
}

// TaskMetadata carries bookkeeping fields for a task.
type TaskMetadata struct {
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified. Eviction keys off this.
	UpdatedAt time.Time `json:"updated_at"`
	// RequestedBy identifies the caller that created the task.
	RequestedBy string `json:"requested_by,omitempty"`
	// Capability is the capability the task was matched against, if any.
	Capability string `json:"capability,omitempty"`
	// PacketID links back to the execution packet, if the task came from one.
	PacketID string `json:"packet_id,omitempty"`
}

// Task is a tracked, stateful unit of dispatched work. It is owned
// exclusively by the dispatcher for its lifetime; callers receive copies.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ExecutorID is the resolved owner responsible for the task.
	ExecutorID string `json:"executor_id"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// Messages is the ordered conversation-style log.
	Messages []Message `json:"messages"`
	// Artifacts lists the outputs produced so far.
	Artifacts []Artifact `json:"artifacts"`
	// Cost is the accumulated spend.
	Cost Cost `json:"cost"`
	// Metadata carries bookkeeping fields.
	Metadata TaskMetadata `json:"metadata"`
}

// Clone returns a deep copy of the task, safe to hand outside the dispatcher.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Messages = append([]Message(nil), t.Messages...)
	cp.Artifacts = append([]Artifact(nil), t.Artifacts...)
	return &cp
}

// StepScore holds heuristic quality scores for one executed step.
// Each dimension is scored 1-3, matching the reviewer rubric convention.
type StepScore struct {
	// Completion measures whether the step finished what it set out to do (1-3).
	Completion int `json:"completion"`
	// Evidence measures whether the step produced artifacts and logs (1-3).
	Evidence int `json:"evidence"`
	// CostDiscipline measures spend relative to expectation (1-3).
	CostDiscipline int `json:"cost_discipline"`
}

// Valid returns true if all scores are in the valid range (1-3).
func (s StepScore) Valid() bool {
	return s.Completion >= 1 && s.Completion <= 3 &&
		s.Evidence >= 1 && s.Evidence <= 3 &&
		s.CostDiscipline >= 1 && s.CostDiscipline <= 3
}

// Total returns the sum of all scores.
func (s StepScore) Total() int {
	return s.Completion + s.Evidence + s.CostDiscipline
}
