// Package view holds the presentation rules of the task list: filtering,
// ordering and the add-task draft.
package view

import (
	"sort"
	"strings"
	"time"

	"taskmanager/domain"
)

// Filter selects which tasks are listed.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
)

// Filters lists the selectable filters in display order.
var Filters = []Filter{FilterAll, FilterCompleted, FilterPending}

// ParseFilter maps a name to a Filter. Unknown names are kept as-is and
// match every task.
func ParseFilter(name string) Filter {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FilterAll
	}
	return Filter(name)
}

// Label is the button text for f.
func (f Filter) Label() string {
	switch f {
	case FilterAll:
		return "All"
	case FilterCompleted:
		return "Completed"
	case FilterPending:
		return "Pending"
	default:
		return string(f)
	}
}

// Visible returns the tasks to display, newest first. The input is not
// reordered.
//
// FilterAll shows only incomplete tasks, the same as FilterPending.
func Visible(tasks []domain.Task, f Filter) []domain.Task {
	sorted := make([]domain.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	out := make([]domain.Task, 0, len(sorted))
	for _, t := range sorted {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

func (f Filter) matches(t domain.Task) bool {
	switch f {
	case FilterCompleted:
		return t.Completed
	case FilterPending, FilterAll:
		return !t.Completed
	default:
		return true
	}
}

// Draft is the add-task form.
type Draft struct {
	Title       string
	Description string
}

// Submit returns the task to create and clears the draft. A blank title
// leaves the draft untouched and returns false.
func (d *Draft) Submit() (domain.NewTask, bool) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return domain.NewTask{}, false
	}
	in := domain.NewTask{Title: title, Description: strings.TrimSpace(d.Description)}
	*d = Draft{}
	return in, true
}

// TogglePatch flips the completed flag of t.
func TogglePatch(t domain.Task) domain.TaskPatch {
	completed := !t.Completed
	return domain.TaskPatch{Completed: &completed}
}

// FormatTime renders a creation time in the local zone.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
