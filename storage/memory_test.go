package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskmanager/domain"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	created, err := s.Create(ctx, domain.NewTask{Title: "Buy milk", Description: "at store"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !domain.ValidID(created.ID) || created.Completed || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected created task: %+v", created)
	}

	done := true
	updated, err := s.Update(ctx, created.ID, domain.TaskPatch{Completed: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed || updated.Title != "Buy milk" || !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("unexpected updated task: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("createdAt must not change on update")
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil || got != updated {
		t.Fatalf("get returned %+v, %v", got, err)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected get after delete to report not found, got %v", err)
	}
}

func TestMemoryStoreUpdateMissingDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	title := "ghost"

	if _, err := s.Update(ctx, domain.NewID(), domain.TaskPatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	tasks, _ := s.List(ctx, domain.ListFilter{})
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
}

func TestMemoryStoreListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		task, err := s.Create(ctx, domain.NewTask{Title: title})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, task.ID)
	}
	done := true
	if _, err := s.Update(ctx, ids[1], domain.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, _ := s.List(ctx, domain.ListFilter{})
	if len(all) != 3 || all[0].ID != ids[0] || all[2].ID != ids[2] {
		t.Fatalf("unexpected order: %+v", all)
	}
	completed, _ := s.List(ctx, domain.CompletedFilter(true))
	if len(completed) != 1 || completed[0].ID != ids[1] {
		t.Fatalf("unexpected completed: %+v", completed)
	}
	pending, _ := s.List(ctx, domain.CompletedFilter(false))
	if len(pending) != 2 {
		t.Fatalf("unexpected pending: %+v", pending)
	}
}

func TestMemoryStoreListEmptyIsNotNil(t *testing.T) {
	tasks, err := NewMemoryStore().List(context.Background(), domain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if tasks == nil {
		t.Fatal("expected empty, non-nil slice")
	}
}

func TestMemoryStoreIDsIgnoreCase(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, domain.NewTask{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	upper := strings.ToUpper(created.ID)

	got, err := s.Get(ctx, upper)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected lower-case id %s, got %s", created.ID, got.ID)
	}

	done := true
	if _, err := s.Update(ctx, upper, domain.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Delete(ctx, upper); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
