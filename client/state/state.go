// Package state holds the client-side task state and the reducer that
// updates it.
package state

import (
	"sync"

	"taskmanager/domain"
)

// Action kinds.
const (
	KindGetTasks   = "GET_TASKS"
	KindGetTask    = "GET_TASK"
	KindCreateTask = "CREATE_TASK"
	KindUpdateTask = "UPDATE_TASK"
	KindDeleteTask = "DELETE_TASK"
)

// Action is a tagged state transition.
type Action interface {
	Kind() string
}

// GetTasks replaces the task list.
type GetTasks struct{ Tasks []domain.Task }

// GetTask replaces the single selected task.
type GetTask struct{ Task domain.Task }

// CreateTask appends a task.
type CreateTask struct{ Task domain.Task }

// UpdateTask replaces the task with the same id.
type UpdateTask struct{ Task domain.Task }

// DeleteTask removes the task with the given id.
type DeleteTask struct{ ID string }

func (GetTasks) Kind() string   { return KindGetTasks }
func (GetTask) Kind() string    { return KindGetTask }
func (CreateTask) Kind() string { return KindCreateTask }
func (UpdateTask) Kind() string { return KindUpdateTask }
func (DeleteTask) Kind() string { return KindDeleteTask }

// State is the client's view of the tasks. Tasks and Task are independent;
// updating one never touches the other.
type State struct {
	Tasks []domain.Task
	Task  *domain.Task
}

// Initial returns the empty state.
func Initial() State {
	return State{Tasks: []domain.Task{}}
}

// Reduce returns the state after applying a. s is never modified.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case GetTasks:
		s.Tasks = cloneTasks(a.Tasks)
	case GetTask:
		t := a.Task
		s.Task = &t
	case CreateTask:
		tasks := make([]domain.Task, len(s.Tasks), len(s.Tasks)+1)
		copy(tasks, s.Tasks)
		s.Tasks = append(tasks, a.Task)
	case UpdateTask:
		tasks := cloneTasks(s.Tasks)
		for i := range tasks {
			if tasks[i].ID == a.Task.ID {
				tasks[i] = a.Task
			}
		}
		s.Tasks = tasks
	case DeleteTask:
		tasks := make([]domain.Task, 0, len(s.Tasks))
		for _, t := range s.Tasks {
			if t.ID != a.ID {
				tasks = append(tasks, t)
			}
		}
		s.Tasks = tasks
	}
	return s
}

func cloneTasks(in []domain.Task) []domain.Task {
	out := make([]domain.Task, len(in))
	copy(out, in)
	return out
}

func (s State) clone() State {
	out := State{Tasks: cloneTasks(s.Tasks)}
	if s.Task != nil {
		t := *s.Task
		out.Task = &t
	}
	return out
}

// Store serialises reductions and notifies subscribers. It is safe for
// concurrent use.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewStore creates a store holding initial.
func NewStore(initial State) *Store {
	if initial.Tasks == nil {
		initial.Tasks = []domain.Task{}
	}
	return &Store{state: initial.clone(), subs: map[int]func(State){}}
}

// Dispatch reduces a into the current state and returns the result.
// Subscribers are called after the lock is released.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.clone())
	}
	return next
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every dispatched action. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
