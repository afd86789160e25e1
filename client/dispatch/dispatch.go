// Package dispatch runs API operations and turns their results into state
// actions.
package dispatch

import (
	"context"

	log "github.com/sirupsen/logrus"

	"taskmanager/client/state"
	"taskmanager/domain"
)

// API is the subset of *taskapi.Client used by the operations.
type API interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (string, error)
}

// Operation is one asynchronous call that yields an action on success.
type Operation struct {
	// Name is used when reporting failures, e.g. "fetching tasks".
	Name string
	Do   func(ctx context.Context) (state.Action, error)
}

// LoadTasks fetches the task list.
func LoadTasks(api API) Operation {
	return Operation{Name: "fetching tasks", Do: func(ctx context.Context) (state.Action, error) {
		tasks, err := api.ListTasks(ctx)
		if err != nil {
			return nil, err
		}
		return state.GetTasks{Tasks: tasks}, nil
	}}
}

// LoadTask fetches a single task.
func LoadTask(api API, id string) Operation {
	return Operation{Name: "fetching task", Do: func(ctx context.Context) (state.Action, error) {
		t, err := api.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		return state.GetTask{Task: t}, nil
	}}
}

// CreateTask creates a task from in.
func CreateTask(api API, in domain.NewTask) Operation {
	return Operation{Name: "creating task", Do: func(ctx context.Context) (state.Action, error) {
		t, err := api.CreateTask(ctx, in)
		if err != nil {
			return nil, err
		}
		return state.CreateTask{Task: t}, nil
	}}
}

// UpdateTask applies p to the task with the given id.
func UpdateTask(api API, id string, p domain.TaskPatch) Operation {
	return Operation{Name: "updating task", Do: func(ctx context.Context) (state.Action, error) {
		t, err := api.UpdateTask(ctx, id, p)
		if err != nil {
			return nil, err
		}
		return state.UpdateTask{Task: t}, nil
	}}
}

// DeleteTask removes a task. The response only carries a message, so the
// action is built from the requested id.
func DeleteTask(api API, id string) Operation {
	return Operation{Name: "deleting task", Do: func(ctx context.Context) (state.Action, error) {
		if _, err := api.DeleteTask(ctx, id); err != nil {
			return nil, err
		}
		return state.DeleteTask{ID: id}, nil
	}}
}

// ErrorSink receives failed operations.
type ErrorSink interface {
	OperationFailed(name string, err error)
}

// SinkFunc adapts a function to ErrorSink.
type SinkFunc func(name string, err error)

func (f SinkFunc) OperationFailed(name string, err error) { f(name, err) }

// Discard ignores every failure.
var Discard ErrorSink = SinkFunc(func(string, error) {})

// LogSink logs failures and drops them.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) OperationFailed(name string, err error) {
	logger := s.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithError(err).WithField("operation", name).Error("Error " + name)
}

// Outcome is the result of one operation.
type Outcome struct {
	Name   string
	Action state.Action
	State  state.State
	Err    error
}

// Dispatcher runs operations against a store. Failures go to Sink and leave
// the store untouched.
type Dispatcher struct {
	Store *state.Store
	Sink  ErrorSink
}

// New returns a dispatcher logging failures through logger.
func New(store *state.Store, logger *log.Logger) *Dispatcher {
	return &Dispatcher{Store: store, Sink: LogSink{Logger: logger}}
}

// Run executes op and dispatches its action.
func (d *Dispatcher) Run(ctx context.Context, op Operation) Outcome {
	out := Outcome{Name: op.Name}
	action, err := op.Do(ctx)
	if err != nil {
		out.Err = err
		d.sink().OperationFailed(op.Name, err)
		out.State = d.Store.State()
		return out
	}
	out.Action = action
	out.State = d.Store.Dispatch(action)
	return out
}

// Go runs op on its own goroutine. The channel receives exactly one outcome.
func (d *Dispatcher) Go(ctx context.Context, op Operation) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		ch <- d.Run(ctx, op)
	}()
	return ch
}

func (d *Dispatcher) sink() ErrorSink {
	if d.Sink == nil {
		return LogSink{}
	}
	return d.Sink
}
