package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/internal/audit"
	"github.com/kestrelhq/kestrel/internal/executor"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// Validation and lookup errors returned by dispatcher entry points.
var (
	// ErrEmptyMessage is returned when a creation request carries no message.
	ErrEmptyMessage = errors.New("message must not be empty")
	// ErrNoExecutor is returned when neither executor ID nor capability
	// resolves to a registered executor.
	ErrNoExecutor = errors.New("no executor resolves for request")
	// ErrTaskNotFound is returned for operations on unknown task IDs.
	ErrTaskNotFound = errors.New("task not found")
	// ErrPacketBlocked is returned when a packet with cleared=false is
	// submitted for execution.
	ErrPacketBlocked = errors.New("execution packet is not cleared")
)

// DefaultTaskTTL is the retention window past a task's last update.
const DefaultTaskTTL = 2 * time.Hour

// Journal archives tasks that reached a terminal state. state.Journal
// satisfies it; a nil journal disables archival.
type Journal interface {
	Archive(t models.Task) error
}

// Config configures a Dispatcher.
type Config struct {
	// Registry resolves executors. Required.
	Registry *executor.Registry
	// TTL is the retention window for eviction. Defaults to DefaultTaskTTL.
	TTL time.Duration
	// Clock supplies timestamps. Defaults to time.Now.
	Clock func() time.Time
	// Logger receives debug lines. Nil disables logging.
	Logger *DebugLogger
	// Ledger receives audit entries. Nil disables auditing.
	Ledger *audit.Ledger
	// Journal archives terminal tasks. Nil disables archival.
	Journal Journal
}

// Dispatcher creates, runs, and tracks tasks. Each task is driven by one
// background goroutine spawned at creation; the creating caller never waits
// on execution.
type Dispatcher struct {
	registry *executor.Registry
	store    *TaskStore
	subs     *subscriberRegistry
	ttl      time.Duration
	clock    func() time.Time
	logger   *DebugLogger
	ledger   *audit.Ledger
	journal  Journal
}

// NewDispatcher creates a Dispatcher from the given configuration.
func NewDispatcher(cfg Config) *Dispatcher {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		registry: cfg.Registry,
		store:    NewTaskStore(),
		subs:     newSubscriberRegistry(),
		ttl:      ttl,
		clock:    clock,
		logger:   cfg.Logger,
		ledger:   cfg.Ledger,
		journal:  cfg.Journal,
	}
}

// CreateRequest is a bare task creation request. At least one of ExecutorID
// and Capability must be set.
type CreateRequest struct {
	// ExecutorID names an exact executor. Takes precedence over Capability.
	ExecutorID string
	// Capability selects the first registered executor serving it.
	Capability string
	// Message is the initiating work description. Required.
	Message string
	// RequestedBy identifies the caller.
	RequestedBy string
	// Steps is an optional explicit step plan handed to the executor.
	Steps []string
	// Context carries small key→value hints handed to the executor.
	Context map[string]string
	// PacketID links the task to an execution packet, if one exists.
	PacketID string
}

// CreateTask validates the request, resolves an executor, stores a submitted
// task, and begins asynchronous execution. The returned task is a snapshot;
// observe later states through GetTask or Subscribe.
func (d *Dispatcher) CreateTask(req CreateRequest) (*models.Task, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	exec, err := d.resolve(req.ExecutorID, req.Capability)
	if err != nil {
		return nil, err
	}

	now := d.clock()
	task := &models.Task{
		ID:         uuid.NewString(),
		ExecutorID: exec.ID(),
		Status:     models.TaskStatusSubmitted,
		Messages: []models.Message{
			{Role: models.RoleUser, Text: req.Message, Timestamp: now},
		},
		Metadata: models.TaskMetadata{
			CreatedAt:   now,
			UpdatedAt:   now,
			RequestedBy: req.RequestedBy,
			Capability:  req.Capability,
			PacketID:    req.PacketID,
		},
	}
	d.store.Put(task)

	d.logger.Logf("task %s created executor=%s capability=%q", task.ID, exec.ID(), req.Capability)
	d.record(req.RequestedBy, audit.ActionTaskCreated, map[string]any{
		"taskId":   task.ID,
		"executor": exec.ID(),
		"packetId": req.PacketID,
	}, models.Cost{})

	// Snapshot before the run goroutine starts; it becomes the task's
	// single writer the moment it is spawned.
	snap := task.Clone()
	go d.run(task.ID, exec, req)

	return snap, nil
}

// CreateTaskFromPacket submits a cleared execution packet. The step plan is
// the packet graph's node objectives; the executor comes from the routing
// decision with its fallback, then capability lookup.
func (d *Dispatcher) CreateTaskFromPacket(pkt models.ExecutionPacket, requestedBy string) (*models.Task, error) {
	if !pkt.Policy.Cleared {
		return nil, fmt.Errorf("%w: %s", ErrPacketBlocked, strings.Join(pkt.Policy.Blockers, "; "))
	}

	capability := "general"
	if len(pkt.Intent.Signals) > 0 {
		capability = strings.ToLower(string(pkt.Intent.Signals[0]))
	}

	steps := make([]string, 0, len(pkt.Graph.Nodes))
	for _, n := range pkt.Graph.Nodes {
		steps = append(steps, n.Objective)
	}

	executorID := pkt.Routing.ExecutionOwner
	if _, ok := d.registry.Get(executorID); !ok {
		if _, ok := d.registry.Get(pkt.Routing.Fallback); ok {
			executorID = pkt.Routing.Fallback
		} else {
			executorID = ""
		}
	}

	d.record(requestedBy, audit.ActionPacketBuilt, map[string]any{
		"packetId": pkt.PacketID,
		"engine":   string(pkt.Routing.Engine),
		"owner":    pkt.Routing.ExecutionOwner,
		"risk":     string(pkt.Policy.RiskLevel),
	}, models.Cost{Tokens: int64(pkt.Cost.EstimatedTokens), USD: pkt.Cost.EstimatedUSD})

	return d.CreateTask(CreateRequest{
		ExecutorID:  executorID,
		Capability:  capability,
		Message:     pkt.Intent.Raw,
		RequestedBy: requestedBy,
		Steps:       steps,
		Context:     pkt.Context.ScopedContext,
		PacketID:    pkt.PacketID,
	})
}

// GetTask returns a snapshot of the task, or ErrTaskNotFound.
func (d *Dispatcher) GetTask(id string) (*models.Task, error) {
	t, ok := d.store.Get(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// ListRecentTasks returns up to limit tasks, newest-first by creation time.
func (d *Dispatcher) ListRecentTasks(limit int) []*models.Task {
	return d.store.ListRecent(limit)
}

// Subscribe registers a callback for a task's lifecycle events and returns
// an unsubscribe function. Events arrive in production order; done is always
// last.
func (d *Dispatcher) Subscribe(id string, cb Callback) (func(), error) {
	if _, ok := d.store.Get(id); !ok {
		return nil, ErrTaskNotFound
	}
	return d.subs.subscribe(id, cb), nil
}

// CancelTask moves a non-terminal task to canceled and reports whether the
// cancellation took effect. Canceling a terminal or unknown task returns
// false. Cancellation is cooperative: in-flight executor work is not
// interrupted, but its results are discarded.
func (d *Dispatcher) CancelTask(id string) bool {
	now := d.clock()
	var canceled bool
	t, ok := d.store.Update(id, func(t *models.Task) {
		if !t.Status.CanTransitionTo(models.TaskStatusCanceled) {
			return
		}
		t.Status = models.TaskStatusCanceled
		t.Metadata.UpdatedAt = now
		canceled = true
	})
	if !ok || !canceled {
		return false
	}

	d.logger.Logf("task %s canceled", id)
	d.record(t.Metadata.RequestedBy, audit.ActionTaskCanceled, map[string]any{"taskId": id}, t.Cost)

	d.emit(TaskEvent{TaskID: id, Type: EventStatus, Timestamp: now, Status: models.TaskStatusCanceled})
	d.subs.publishFinal(TaskEvent{TaskID: id, Type: EventDone, Timestamp: now})
	d.archive(*t)
	return true
}

// Sweep evicts every task whose last update is older than the TTL, dropping
// its subscribers. Working tasks are never evicted. It returns the number of
// tasks removed. Sweep is safe to call on demand; StartSweeper runs it on a
// schedule.
func (d *Dispatcher) Sweep() int {
	cutoff := d.clock().Add(-d.ttl)
	evicted := d.store.Evict(cutoff)
	for _, t := range evicted {
		d.subs.removeAll(t.ID)
	}
	if len(evicted) > 0 {
		d.logger.Logf("sweep evicted %d task(s)", len(evicted))
		d.record("dispatcher", audit.ActionSweepRun, map[string]any{"evicted": len(evicted)}, models.Cost{})
	}
	return len(evicted)
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (d *Dispatcher) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Sweep()
			}
		}
	}()
}

// resolve picks an executor by exact ID, then by capability.
func (d *Dispatcher) resolve(executorID, capability string) (executor.Executor, error) {
	if executorID != "" {
		if e, ok := d.registry.Get(executorID); ok {
			return e, nil
		}
		return nil, fmt.Errorf("%w: unknown executor %q", ErrNoExecutor, executorID)
	}
	if capability != "" {
		if matches := d.registry.FindByCapability(capability); len(matches) > 0 {
			return matches[0], nil
		}
		return nil, fmt.Errorf("%w: no executor serves capability %q", ErrNoExecutor, capability)
	}
	return nil, ErrNoExecutor
}

// run drives one task from working to a terminal state. It is the task's
// single writer. Executor panics and errors are caught here and recorded as
// a failed transition; they never escape the goroutine.
func (d *Dispatcher) run(taskID string, exec executor.Executor, req CreateRequest) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Logf("task %s: executor panic: %v", taskID, r)
			d.finish(taskID, req.RequestedBy, executor.FailOutput(taskID, exec.ID(), fmt.Sprintf("executor panic: %v", r)))
		}
	}()

	now := d.clock()
	_, ok := d.store.Update(taskID, func(t *models.Task) {
		if t.Status.CanTransitionTo(models.TaskStatusWorking) {
			t.Status = models.TaskStatusWorking
			t.Metadata.UpdatedAt = now
		}
	})
	if !ok {
		return
	}

	// The task may have been canceled between creation and here.
	if cur, ok := d.store.Get(taskID); !ok || cur.Status != models.TaskStatusWorking {
		return
	}

	d.emit(TaskEvent{TaskID: taskID, Type: EventStatus, Timestamp: now, Status: models.TaskStatusWorking})
	d.emit(TaskEvent{TaskID: taskID, Type: EventProgress, Timestamp: now, Text: fmt.Sprintf("execution started with %s", exec.ID())})

	out, err := exec.Execute(context.Background(), executor.Input{
		TaskID:     taskID,
		Capability: req.Capability,
		Query:      req.Message,
		Context:    req.Context,
		Steps:      req.Steps,
	})
	if err != nil {
		out = executor.FailOutput(taskID, exec.ID(), err.Error())
	}

	d.finish(taskID, req.RequestedBy, out)
}

// finish records the executor output on the task and moves it to its
// terminal state, emitting events in order: artifact* → cost → message →
// status → done. If the task was canceled mid-flight the output is
// discarded and no events are emitted.
func (d *Dispatcher) finish(taskID, requestedBy string, out executor.Output) {
	now := d.clock()
	next := models.TaskStatusCompleted
	if out.Status != executor.StatusSuccess {
		next = models.TaskStatusFailed
	}

	var artifacts []models.Artifact
	var applied bool
	t, ok := d.store.Update(taskID, func(t *models.Task) {
		if !t.Status.CanTransitionTo(next) {
			return
		}
		for i, content := range out.Result.Artifacts {
			artifacts = append(artifacts, models.Artifact{
				ID:      uuid.NewString(),
				Name:    fmt.Sprintf("artifact-%d", len(t.Artifacts)+i+1),
				Type:    "text",
				Content: content,
			})
		}
		t.Artifacts = append(t.Artifacts, artifacts...)
		t.Cost.Add(out.Cost)
		if out.Result.Summary != "" {
			t.Messages = append(t.Messages, models.Message{
				Role:      models.RoleExecutor,
				Text:      out.Result.Summary,
				Timestamp: now,
			})
		}
		t.Status = next
		t.Metadata.UpdatedAt = now
		applied = true
	})
	if !ok || !applied {
		return
	}

	for i := range artifacts {
		d.emit(TaskEvent{TaskID: taskID, Type: EventArtifact, Timestamp: now, Artifact: &artifacts[i]})
	}
	cost := t.Cost
	d.emit(TaskEvent{TaskID: taskID, Type: EventCost, Timestamp: now, Cost: &cost})
	if out.Result.Summary != "" {
		d.emit(TaskEvent{TaskID: taskID, Type: EventMessage, Timestamp: now, Text: out.Result.Summary})
	}
	if next == models.TaskStatusFailed {
		d.emit(TaskEvent{TaskID: taskID, Type: EventError, Timestamp: now, Text: out.Result.Summary})
		d.record(requestedBy, audit.ActionTaskFailed, map[string]any{"taskId": taskID}, out.Cost)
	} else {
		d.record(requestedBy, audit.ActionTaskCompleted, map[string]any{"taskId": taskID}, out.Cost)
	}
	d.emit(TaskEvent{TaskID: taskID, Type: EventStatus, Timestamp: now, Status: next})
	d.subs.publishFinal(TaskEvent{TaskID: taskID, Type: EventDone, Timestamp: now})

	d.logger.Logf("task %s finished status=%s tokens=%d", taskID, next, out.Cost.Tokens)
	d.archive(*t)
}

func (d *Dispatcher) emit(ev TaskEvent) {
	d.subs.publish(ev)
}

func (d *Dispatcher) record(actor string, action audit.Action, detail map[string]any, cost models.Cost) {
	if d.ledger == nil {
		return
	}
	if actor == "" {
		actor = "dispatcher"
	}
	d.ledger.Record(actor, action, detail, cost)
}

func (d *Dispatcher) archive(t models.Task) {
	if d.journal == nil || !t.Status.Terminal() {
		return
	}
	if err := d.journal.Archive(t); err != nil {
		d.logger.Logf("task %s: journal archive failed: %v", t.ID, err)
	}
}
