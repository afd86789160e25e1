package storage

import (
	"context"
	"sync"
	"time"

	"taskmanager/domain"
)

// MemoryStore keeps tasks in process memory. Listing returns tasks in
// insertion order. Ids are matched case-insensitively, as in MongoDB.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
	order []string
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]domain.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Create(_ context.Context, in domain.NewTask) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	t := domain.Task{
		ID:          domain.NewID(),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tasks[t.ID] = t
	m.order = append(m.order, t.ID)
	return t, nil
}

func (m *MemoryStore) List(_ context.Context, f domain.ListFilter) ([]domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]domain.Task, 0, len(m.order))
	for _, id := range m.order {
		if t := m.tasks[id]; f.Matches(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id = domain.CanonicalID(id)
	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id = domain.CanonicalID(id)
	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	if p.IsEmpty() {
		return t, nil
	}
	t = p.Apply(t)
	t.UpdatedAt = m.now()
	m.tasks[id] = t
	return t, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id = domain.CanonicalID(id)
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.tasks, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
