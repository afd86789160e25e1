package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskmanager/domain"
	"taskmanager/events"
)

const (
	maxBodySize   = 64 << 10
	healthTimeout = 2 * time.Second
)

// Response messages for store failures. Details are only logged.
const (
	msgCreateFailed = "Error creating task"
	msgListFailed   = "Error fetching tasks"
	msgGetFailed    = "Error fetching task"
	msgUpdateFailed = "Error updating task"
	msgDeleteFailed = "Error deleting task"
	msgNotFound     = "Task not found"
	msgDeleted      = "Task deleted successfully"
)

var errBodyTooLarge = errors.New("request body too large")

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, pub Publisher, logger *log.Logger) {
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	g := e.Group(tasksRoute)
	g.POST("", createTask(store, pub, logger))
	g.GET("", listTasks(store, logger))
	g.GET("/:id", getTask(store, logger))
	g.PUT("/:id", updateTask(store, pub, logger))
	g.DELETE("/:id", deleteTask(store, pub, logger))
	e.GET("/healthz", healthz(store, logger))
}

func healthz(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			logger.WithError(err).Warn("health check failed")
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		}
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}

func createTask(store Storage, pub Publisher, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, ctx := startRequest(c, logger, "create", tasksRoute)
		defer func() { m.Log(c.Response().Status) }()

		var req createTaskRequest
		var v domain.Validation
		if err := decodeBody(c, &req); err != nil {
			v.Body()
		} else {
			v.RequiredTitle(req.Title)
		}
		if err := v.Err(); err != nil {
			return validationFailed(c, m, err)
		}

		in := domain.NewTask{Title: *req.Title}
		if req.Description != nil {
			in.Description = *req.Description
		}

		storeStart := time.Now()
		task, err := store.Create(ctx, in)
		m.ObserveStore(time.Since(storeStart))
		if err != nil {
			return storeFailed(c, m, err, msgCreateFailed)
		}
		m.SetTaskID(task.ID)
		publishTask(pub, logger, events.TaskCreated, task)
		return c.JSON(http.StatusCreated, task)
	}
}

func listTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, ctx := startRequest(c, logger, "list", tasksRoute)
		defer func() { m.Log(c.Response().Status) }()

		storeStart := time.Now()
		tasks, err := store.List(ctx, listFilter(c.QueryParam("completed")))
		m.ObserveStore(time.Since(storeStart))
		if err != nil {
			m.Fail("store", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: msgListFailed})
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		m.SetTasksReturned(len(tasks))
		return c.JSON(http.StatusOK, tasks)
	}
}

// listFilter maps the completed query flag. Any non-empty value other than
// "true" selects incomplete tasks.
func listFilter(completed string) domain.ListFilter {
	if completed == "" {
		return domain.ListFilter{}
	}
	return domain.CompletedFilter(completed == "true")
}

func getTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, ctx := startRequest(c, logger, "get", taskRoute)
		defer func() { m.Log(c.Response().Status) }()

		var v domain.Validation
		id := v.ID(c.Param("id"))
		m.SetTaskID(id)
		if err := v.Err(); err != nil {
			return validationFailed(c, m, err)
		}

		storeStart := time.Now()
		task, err := store.Get(ctx, id)
		m.ObserveStore(time.Since(storeStart))
		if err != nil {
			return storeFailed(c, m, err, msgGetFailed)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(store Storage, pub Publisher, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, ctx := startRequest(c, logger, "update", taskRoute)
		defer func() { m.Log(c.Response().Status) }()

		var v domain.Validation
		id := v.ID(c.Param("id"))
		m.SetTaskID(id)
		var patch domain.TaskPatch
		var fields map[string]any
		if err := decodeBody(c, &patch, &fields); err != nil {
			v.Body()
		} else if explicitNull(fields, "title") {
			v.NullTitle()
		} else {
			v.OptionalTitle(patch.Title)
		}
		if err := v.Err(); err != nil {
			return validationFailed(c, m, err)
		}

		storeStart := time.Now()
		task, err := store.Update(ctx, id, patch)
		m.ObserveStore(time.Since(storeStart))
		if err != nil {
			return storeFailed(c, m, err, msgUpdateFailed)
		}
		if !patch.IsEmpty() {
			publishTask(pub, logger, events.TaskUpdated, task)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, pub Publisher, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, ctx := startRequest(c, logger, "delete", taskRoute)
		defer func() { m.Log(c.Response().Status) }()

		var v domain.Validation
		id := v.ID(c.Param("id"))
		m.SetTaskID(id)
		if err := v.Err(); err != nil {
			return validationFailed(c, m, err)
		}

		storeStart := time.Now()
		err := store.Delete(ctx, id)
		m.ObserveStore(time.Since(storeStart))
		if err != nil {
			return storeFailed(c, m, err, msgDeleteFailed)
		}
		publish(pub, logger, events.NewTaskDeleted(id))
		return c.JSON(http.StatusOK, messageResponse{Message: msgDeleted})
	}
}

// startRequest opens the request span and makes it the request context.
func startRequest(c echo.Context, logger *log.Logger, operation, route string) (*requestMetrics, context.Context) {
	req := c.Request()
	m, ctx := newRequestMetrics(req.Context(), logger, operation, req.Method, route)
	c.SetRequest(req.WithContext(ctx))
	return m, ctx
}

// decodeBody reads at most maxBodySize bytes and unmarshals them into every
// target. An empty body decodes as {}.
func decodeBody(c echo.Context, targets ...any) error {
	body := c.Request().Body
	if body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return err
	}
	if len(data) > maxBodySize {
		return errBodyTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	for _, v := range targets {
		if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
			return err
		}
	}
	return nil
}

// explicitNull reports whether key was sent with a JSON null value.
func explicitNull(fields map[string]any, key string) bool {
	v, ok := fields[key]
	return ok && v == nil
}

func validationFailed(c echo.Context, m *requestMetrics, err error) error {
	m.Fail("validation", nil)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, validationResponse{})
	}
	return c.JSON(http.StatusBadRequest, validationResponse{Errors: verr.Errors})
}

func storeFailed(c echo.Context, m *requestMetrics, err error, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		m.Fail("not_found", nil)
		return c.JSON(http.StatusNotFound, errorResponse{Error: msgNotFound})
	}
	m.Fail("store", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: msg})
}

func publishTask(pub Publisher, logger *log.Logger, typ string, task domain.Task) {
	ev, err := events.NewTaskEvent(typ, task)
	if err != nil {
		logger.WithError(err).WithField("task_id", task.ID).Error("encode task event")
		return
	}
	publish(pub, logger, ev)
}

func publish(pub Publisher, logger *log.Logger, ev events.Event) {
	if !pub.Publish(ev) {
		logger.WithFields(log.Fields{"event_id": ev.ID, "type": ev.Type, "task_id": ev.EntityID}).Warn("task event not published")
	}
}
