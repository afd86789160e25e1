package events

import (
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"

	"taskmanager/domain"
)

func TestNewTaskEventCarriesTask(t *testing.T) {
	task := domain.Task{ID: domain.NewID(), Title: "Buy milk", Completed: true}
	ev, err := NewTaskEvent(TaskUpdated, task)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if ev.ID == "" || ev.EntityID != task.ID || ev.Type != TaskUpdated || ev.Time == 0 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	var decoded domain.Task
	if err := sonic.Unmarshal(ev.Data, &decoded); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if decoded.Title != task.Title || !decoded.Completed {
		t.Fatalf("unexpected data: %+v", decoded)
	}
}

func TestTaskDeletedOmitsData(t *testing.T) {
	payload, err := sonic.Marshal(NewTaskDeleted("abc"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), `"data"`) {
		t.Fatalf("expected no data field, got %s", payload)
	}
	if !strings.Contains(string(payload), `"type":"task-deleted"`) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestNextTimestampIsStrictlyIncreasing(t *testing.T) {
	const goroutines, perGoroutine = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, goroutines*perGoroutine)
		wg   sync.WaitGroup
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := int64(0)
			for j := 0; j < perGoroutine; j++ {
				ts := nextTimestamp()
				if ts <= prev {
					t.Errorf("timestamp went backwards: %d <= %d", ts, prev)
				}
				prev = ts
				mu.Lock()
				seen[ts] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("expected unique timestamps, got %d of %d", len(seen), goroutines*perGoroutine)
	}
}
