// Package cli is the taskctl command tree: an interactive UI plus scriptable
// task commands talking to the task API.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskmanager/client/dispatch"
	"taskmanager/client/state"
	"taskmanager/client/taskapi"
	"taskmanager/config"
	"taskmanager/tui"
)

const defaultAPIURL = "http://localhost:3001/api"

type App struct {
	APIURL string
	JSON   bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskctl",
		Short:        "Task manager client",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive UI
  taskctl

  # Scriptable commands
  taskctl list --filter completed
  taskctl add "Buy milk" --description "at store"
  taskctl toggle 65a1f0c2e4b0a1b2c3d4e5f6
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runUI(cmd, app, "")
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", apiURLDefault(), "Task API base URL (env TASKS_API_URL)")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print results as JSON")

	cmd.AddCommand(newUICmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newUpdateCmd(app))
	cmd.AddCommand(newToggleCmd(app))
	cmd.AddCommand(newRemoveCmd(app))

	return cmd
}

// apiURLDefault falls back to the built-in URL when the environment is not
// loadable, so --help keeps working with a broken .env.
func apiURLDefault() string {
	cfg, err := config.Load()
	if err != nil || cfg.APIURL == "" {
		return defaultAPIURL
	}
	return cfg.APIURL
}

func newUICmd(app *App) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the interactive task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, app, logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Append failed API calls to this file")
	return cmd
}

func runUI(cmd *cobra.Command, app *App, logFile string) error {
	logger := log.New()
	logger.SetOutput(io.Discard)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	client := taskapi.New(app.APIURL)
	store := state.NewStore(state.Initial())
	return tui.Run(cmd.Context(), client, store, dispatch.LogSink{Logger: logger})
}

// session is one command's view of the API: a fresh store and a dispatcher
// that leaves failure reporting to the command.
type session struct {
	api        *taskapi.Client
	dispatcher *dispatch.Dispatcher
}

func (app *App) session() *session {
	return &session{
		api:        taskapi.New(app.APIURL),
		dispatcher: &dispatch.Dispatcher{Store: state.NewStore(state.Initial()), Sink: dispatch.Discard},
	}
}

func (s *session) run(cmd *cobra.Command, op dispatch.Operation) (dispatch.Outcome, error) {
	out := s.dispatcher.Run(cmd.Context(), op)
	if out.Err != nil {
		return out, fmt.Errorf("%s: %w", op.Name, out.Err)
	}
	return out, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
