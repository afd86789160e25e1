package domain

import "time"

// Task represents a single to-do item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTask carries the fields accepted when creating a task.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Apply returns t with the provided fields replaced.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// ListFilter restricts a task listing. A nil Completed matches every task.
type ListFilter struct {
	Completed *bool
}

// Matches reports whether t passes the filter.
func (f ListFilter) Matches(t Task) bool {
	return f.Completed == nil || *f.Completed == t.Completed
}

// CompletedFilter is a shorthand for a filter on the completed flag.
func CompletedFilter(completed bool) ListFilter {
	return ListFilter{Completed: &completed}
}
