// Package events publishes task change notifications to a queue.
package events

import (
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"taskmanager/domain"
)

// Event types.
const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
)

const entityTask = "task"

// Event describes a change to a task.
type Event struct {
	ID         string                 `json:"id"`
	EntityID   string                 `json:"entityId"`
	EntityType string                 `json:"entityType"`
	Type       string                 `json:"type"`
	Data       sonic.NoCopyRawMessage `json:"data,omitempty"`
	Time       int64                  `json:"time"`
}

// NewTaskEvent builds an event of the given type carrying the task as data.
func NewTaskEvent(typ string, t domain.Task) (Event, error) {
	data, err := sonic.Marshal(t)
	if err != nil {
		return Event{}, err
	}
	ev := newEvent(typ, t.ID)
	ev.Data = data
	return ev, nil
}

// NewTaskDeleted builds a task-deleted event. It carries no data.
func NewTaskDeleted(id string) Event {
	return newEvent(TaskDeleted, id)
}

func newEvent(typ, entityID string) Event {
	return Event{
		ID:         uuid.NewString(),
		EntityID:   entityID,
		EntityType: entityTask,
		Type:       typ,
		Time:       nextTimestamp(),
	}
}

var lastTimestamp int64

// nextTimestamp returns strictly increasing unix nanoseconds so events from
// one process keep their order.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}
