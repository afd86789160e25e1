// Package tui is the interactive terminal view of the task list.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskmanager/client/dispatch"
	"taskmanager/client/state"
	"taskmanager/client/view"
	"taskmanager/domain"
)

type focus int

const (
	focusList focus = iota
	focusTitle
	focusDescription
)

// outcomeMsg carries a finished dispatcher operation back into Update.
type outcomeMsg struct {
	outcome dispatch.Outcome
}

// Model is the bubbletea model of the task screen.
type Model struct {
	ctx        context.Context
	api        dispatch.API
	dispatcher *dispatch.Dispatcher

	tasks  []domain.Task
	filter view.Filter
	cursor int
	focus  focus

	title       textinput.Model
	description textinput.Model

	width int
}

// New builds the model. Tasks are loaded by Init.
func New(ctx context.Context, api dispatch.API, d *dispatch.Dispatcher) Model {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 200
	title.Prompt = "Title: "
	title.Cursor.SetMode(cursor.CursorStatic)

	description := textinput.New()
	description.Placeholder = "Task description"
	description.CharLimit = 1000
	description.Prompt = "Description: "
	description.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		ctx:         ctx,
		api:         api,
		dispatcher:  d,
		tasks:       d.Store.State().Tasks,
		filter:      view.FilterAll,
		title:       title,
		description: description,
	}
}

// Init loads the task list.
func (m Model) Init() tea.Cmd {
	return m.run(dispatch.LoadTasks(m.api))
}

func (m Model) run(op dispatch.Operation) tea.Cmd {
	ctx, d := m.ctx, m.dispatcher
	return func() tea.Msg {
		return outcomeMsg{outcome: d.Run(ctx, op)}
	}
}

func (m Model) visible() []domain.Task {
	return view.Visible(m.tasks, m.filter)
}

func (m Model) selected() (domain.Task, bool) {
	tasks := m.visible()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focus = f
	m.title.Blur()
	m.description.Blur()
	switch f {
	case focusTitle:
		return m.title.Focus()
	case focusDescription:
		return m.description.Focus()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case outcomeMsg:
		// Operations can finish out of order, so the store is the source of
		// truth rather than the snapshot in the outcome. Failures were already
		// reported to the sink.
		m.tasks = m.dispatcher.Store.State().Tasks
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.focus != focusList {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab:
		if m.focus == focusTitle {
			return m, m.setFocus(focusDescription)
		}
		return m, m.setFocus(focusList)
	case tea.KeyShiftTab:
		if m.focus == focusDescription {
			return m, m.setFocus(focusTitle)
		}
		return m, m.setFocus(focusList)
	case tea.KeyEsc:
		return m, m.setFocus(focusList)
	case tea.KeyEnter:
		draft := view.Draft{Title: m.title.Value(), Description: m.description.Value()}
		in, ok := draft.Submit()
		if !ok {
			return m, nil
		}
		m.title.Reset()
		m.description.Reset()
		return m, tea.Batch(m.setFocus(focusTitle), m.run(dispatch.CreateTask(m.api, in)))
	}

	var cmd tea.Cmd
	if m.focus == focusTitle {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.description, cmd = m.description.Update(msg)
	}
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "a":
		return m, m.setFocus(focusTitle)
	case "shift+tab":
		return m, m.setFocus(focusDescription)
	case "1":
		m.setFilter(view.FilterAll)
	case "2":
		m.setFilter(view.FilterCompleted)
	case "3":
		m.setFilter(view.FilterPending)
	case "f":
		m.setFilter(nextFilter(m.filter))
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case " ", "space":
		if t, ok := m.selected(); ok {
			return m, m.run(dispatch.UpdateTask(m.api, t.ID, view.TogglePatch(t)))
		}
	case "x", "delete":
		if t, ok := m.selected(); ok {
			return m, m.run(dispatch.DeleteTask(m.api, t.ID))
		}
	case "r":
		return m, m.run(dispatch.LoadTasks(m.api))
	}
	return m, nil
}

func (m *Model) setFilter(f view.Filter) {
	m.filter = f
	m.cursor = 0
}

func nextFilter(f view.Filter) view.Filter {
	for i, candidate := range view.Filters {
		if candidate == f {
			return view.Filters[(i+1)%len(view.Filters)]
		}
	}
	return view.FilterAll
}

// Run starts the program in the alternate screen and blocks until it exits.
func Run(ctx context.Context, api dispatch.API, store *state.Store, sink dispatch.ErrorSink) error {
	d := &dispatch.Dispatcher{Store: store, Sink: sink}
	_, err := tea.NewProgram(New(ctx, api, d), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
