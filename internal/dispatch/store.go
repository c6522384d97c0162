package dispatch

import (
	"sort"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// TaskStore is the canonical id → task map. Reads return deep copies so
// callers can never mutate dispatcher-owned state; writes go through Update
// which holds the lock for the whole mutation.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// NewTaskStore creates an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*models.Task)}
}

// Put inserts a task. The store takes ownership of the value.
func (s *TaskStore) Put(t *models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

// Get returns a deep copy of the task, or false if unknown.
func (s *TaskStore) Get(id string) (*models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Update applies fn to the stored task under the write lock and returns a
// copy of the result. ok is false when the task is unknown.
func (s *TaskStore) Update(id string, fn func(*models.Task)) (*models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	fn(t)
	return t.Clone(), true
}

// Delete removes a task.
func (s *TaskStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// ListRecent returns up to limit tasks, newest-first by creation time.
// A non-positive limit returns all tasks.
func (s *TaskStore) ListRecent(limit int) []*models.Task {
	s.mu.RLock()
	all := make([]*models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		all = append(all, t.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Metadata.CreatedAt.Equal(all[j].Metadata.CreatedAt) {
			return all[i].Metadata.CreatedAt.After(all[j].Metadata.CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Evict removes every task whose last update is older than cutoff, except
// tasks still working. It returns the removed tasks so the caller can drop
// their subscribers and archive them.
func (s *TaskStore) Evict(cutoff time.Time) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []*models.Task
	for id, t := range s.tasks {
		if t.Status == models.TaskStatusWorking {
			continue
		}
		if t.Metadata.UpdatedAt.Before(cutoff) {
			evicted = append(evicted, t)
			delete(s.tasks, id)
		}
	}
	return evicted
}
