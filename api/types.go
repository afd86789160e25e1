package api

import (
	"context"

	"taskmanager/domain"
	"taskmanager/events"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	Create(ctx context.Context, in domain.NewTask) (domain.Task, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Task, error)
	Get(ctx context.Context, id string) (domain.Task, error)
	Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Publisher receives task change events after successful writes.
type Publisher interface {
	Publish(ev events.Event) bool
}

type createTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Errors []domain.FieldError `json:"errors"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
