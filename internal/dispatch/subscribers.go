package dispatch

import "sync"

// Callback receives task events. Callbacks run synchronously on the
// emitting goroutine, so events for one task arrive in production order.
// A callback must not publish events for the same task.
type Callback func(TaskEvent)

// subscriberRegistry maps task IDs to their subscriber callbacks. Delivery
// is serialized per task: publishes for one task never interleave, and
// publishFinal guarantees no subscriber observes an event after the final
// one.
type subscriberRegistry struct {
	mu       sync.Mutex
	subs     map[string]map[int]Callback
	delivery map[string]*sync.Mutex
	next     int
}

func newSubscriberRegistry() *subscriberRegistry {
	return &subscriberRegistry{
		subs:     make(map[string]map[int]Callback),
		delivery: make(map[string]*sync.Mutex),
	}
}

// subscribe registers a callback for a task and returns an unsubscribe
// function. Unsubscribing twice is safe.
func (r *subscriberRegistry) subscribe(taskID string, cb Callback) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subs[taskID] == nil {
		r.subs[taskID] = make(map[int]Callback)
	}
	id := r.next
	r.next++
	r.subs[taskID][id] = cb

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set, ok := r.subs[taskID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.subs, taskID)
			}
		}
	}
}

// deliveryLock returns the task's delivery mutex, creating it on first use.
func (r *subscriberRegistry) deliveryLock(taskID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.delivery[taskID]
	if !ok {
		lock = &sync.Mutex{}
		r.delivery[taskID] = lock
	}
	return lock
}

// publish delivers an event to every subscriber of the task.
func (r *subscriberRegistry) publish(ev TaskEvent) {
	r.mu.Lock()
	_, live := r.subs[ev.TaskID]
	r.mu.Unlock()
	if !live {
		return
	}

	lock := r.deliveryLock(ev.TaskID)
	lock.Lock()
	defer lock.Unlock()
	r.deliver(ev)
}

// publishFinal delivers the task's last event and drops its subscribers in
// one step. A publish racing this call either completes before the final
// event or finds no subscribers left, so nothing can arrive after it.
func (r *subscriberRegistry) publishFinal(ev TaskEvent) {
	lock := r.deliveryLock(ev.TaskID)
	lock.Lock()
	defer lock.Unlock()
	r.deliver(ev)

	r.mu.Lock()
	delete(r.subs, ev.TaskID)
	delete(r.delivery, ev.TaskID)
	r.mu.Unlock()
}

// deliver invokes the task's callbacks. A panicking callback is isolated so
// it cannot break delivery to the others or crash the dispatch goroutine.
// Callers hold the task's delivery lock.
func (r *subscriberRegistry) deliver(ev TaskEvent) {
	r.mu.Lock()
	set := r.subs[ev.TaskID]
	cbs := make([]Callback, 0, len(set))
	for _, cb := range set {
		cbs = append(cbs, cb)
	}
	r.mu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() { _ = recover() }()
			cb(ev)
		}()
	}
}

// removeAll drops every subscriber of a task without a final event. Used on
// eviction.
func (r *subscriberRegistry) removeAll(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, taskID)
	delete(r.delivery, taskID)
}

// count reports the number of live subscribers for a task.
func (r *subscriberRegistry) count(taskID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[taskID])
}
