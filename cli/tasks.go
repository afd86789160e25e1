package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"taskmanager/client/dispatch"
	"taskmanager/client/state"
	"taskmanager/client/view"
	"taskmanager/domain"
)

func newListCmd(app *App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.session()
			out, err := s.run(cmd, dispatch.LoadTasks(s.api))
			if err != nil {
				return err
			}
			tasks := view.Visible(out.State.Tasks, view.ParseFilter(filter))
			if app.JSON {
				return writeJSON(cmd, tasks)
			}
			return writeTasks(cmd.OutOrStdout(), tasks)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(view.FilterAll), "all|completed|pending (all lists open tasks)")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.session()
			out, err := s.run(cmd, dispatch.LoadTask(s.api, args[0]))
			if err != nil {
				return err
			}
			return writeResult(cmd, app, *out.State.Task)
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := view.Draft{Title: args[0], Description: description}
			in, ok := draft.Submit()
			if !ok {
				return errors.New(domain.MsgTitleRequired)
			}
			s := app.session()
			out, err := s.run(cmd, dispatch.CreateTask(s.api, in))
			if err != nil {
				return err
			}
			return writeResult(cmd, app, out.Action.(state.CreateTask).Task)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	return cmd
}

func newUpdateCmd(app *App) *cobra.Command {
	var title string
	var description string
	var completed bool

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change the title, description or completed flag of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p domain.TaskPatch
			if cmd.Flags().Changed("title") {
				p.Title = &title
			}
			if cmd.Flags().Changed("description") {
				p.Description = &description
			}
			if cmd.Flags().Changed("completed") {
				p.Completed = &completed
			}
			if p.IsEmpty() {
				return errors.New("nothing to update: pass --title, --description or --completed")
			}
			return runUpdate(cmd, app, app.session(), args[0], p)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().BoolVar(&completed, "completed", false, "Mark the task completed (--completed=false reopens it)")
	return cmd
}

func newToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Flip the completed flag of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.session()
			out, err := s.run(cmd, dispatch.LoadTask(s.api, args[0]))
			if err != nil {
				return err
			}
			return runUpdate(cmd, app, s, args[0], view.TogglePatch(*out.State.Task))
		},
	}
}

func runUpdate(cmd *cobra.Command, app *App, s *session, id string, p domain.TaskPatch) error {
	out, err := s.run(cmd, dispatch.UpdateTask(s.api, id, p))
	if err != nil {
		return err
	}
	return writeResult(cmd, app, out.Action.(state.UpdateTask).Task)
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.session()
			if _, err := s.run(cmd, dispatch.DeleteTask(s.api, args[0])); err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(cmd, map[string]string{"id": args[0]})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return err
		},
	}
}

func writeResult(cmd *cobra.Command, app *App, t domain.Task) error {
	if app.JSON {
		return writeJSON(cmd, t)
	}
	return writeTask(cmd.OutOrStdout(), t)
}

func writeTasks(w io.Writer, tasks []domain.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks to show.")
		return err
	}
	for _, t := range tasks {
		if _, err := fmt.Fprintf(w, "%s %s  %s  %s\n", checkbox(t), t.ID, t.Title, view.FormatTime(t.CreatedAt)); err != nil {
			return err
		}
	}
	return nil
}

func writeTask(w io.Writer, t domain.Task) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", checkbox(t), t.Title)
	fmt.Fprintf(&b, "ID:          %s\n", t.ID)
	if t.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
	}
	fmt.Fprintf(&b, "Created:     %s\n", view.FormatTime(t.CreatedAt))
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Updated:     %s\n", view.FormatTime(t.UpdatedAt))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func checkbox(t domain.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}
