package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskmanager/client/view"
)

const emptyText = "No tasks to show."

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginBottom(1)

	filterStyle       = lipgloss.NewStyle().Padding(0, 1).MarginRight(1).Foreground(lipgloss.Color("250")).Background(lipgloss.Color("236"))
	activeFilterStyle = map[view.Filter]lipgloss.Style{
		view.FilterAll:       filterStyle.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("27")),
		view.FilterCompleted: filterStyle.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("28")),
		view.FilterPending:   filterStyle.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("136")),
	}

	taskTitleStyle = lipgloss.NewStyle().Bold(true)
	doneStyle      = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("243"))
	detailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	emptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Task Manager"))
	b.WriteString("\n")
	b.WriteString(m.title.View())
	b.WriteString("\n")
	b.WriteString(m.description.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")

	tasks := m.visible()
	if len(tasks) == 0 {
		b.WriteString(emptyStyle.Render(emptyText))
		b.WriteString("\n")
	}
	for i, t := range tasks {
		pointer := "  "
		if m.focus == focusList && i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		box := "[ ]"
		title := taskTitleStyle.Render(t.Title)
		desc := t.Description
		if t.Completed {
			box = "[x]"
			title = doneStyle.Render(t.Title)
		}
		b.WriteString(pointer + box + " " + title + "\n")
		if desc != "" {
			if t.Completed {
				desc = doneStyle.Render(desc)
			} else {
				desc = detailStyle.Render(desc)
			}
			b.WriteString("      " + desc + "\n")
		}
		b.WriteString("      " + metaStyle.Render("Created: "+view.FormatTime(t.CreatedAt)) + "\n")
	}

	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) renderFilters() string {
	parts := make([]string, 0, len(view.Filters))
	for i, f := range view.Filters {
		label := string(rune('1'+i)) + " " + f.Label()
		style := filterStyle
		if f == m.filter {
			style = activeFilterStyle[f]
		}
		parts = append(parts, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) help() string {
	if m.focus != focusList {
		return "enter add • tab next field • esc back to list • ctrl+c quit"
	}
	return "↑/↓ move • space toggle • x delete • 1/2/3 filter • tab add task • r reload • q quit"
}
