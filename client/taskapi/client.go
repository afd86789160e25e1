// Package taskapi is an HTTP client for the task API.
package taskapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"taskmanager/domain"
)

const maxErrorBody = 64 << 10

// Error is returned for non-2xx responses.
type Error struct {
	Status  int
	Message string
	Fields  []domain.FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Msg)
		}
		return fmt.Sprintf("task api: %d: %s", e.Status, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("task api: %d: %s", e.Status, e.Message)
}

// NotFound reports whether the API answered 404.
func (e *Error) NotFound() bool { return e.Status == http.StatusNotFound }

// Client wraps http.Client with helpers for the task routes.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:3001/api.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type createTaskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type deleteTaskResponse struct {
	Message string `json:"message"`
}

// ListTasks fetches every task.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var t domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &t)
	return t, err
}

// CreateTask creates a task. New tasks are always sent as not completed.
func (c *Client) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	var t domain.Task
	body := createTaskBody{Title: in.Title, Description: in.Description}
	err := c.do(ctx, http.MethodPost, "/tasks", body, &t)
	return t, err
}

// UpdateTask sends the provided fields and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	var t domain.Task
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), p, &t)
	return t, err
}

// DeleteTask removes a task and returns the confirmation message.
func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	var resp deleteTaskResponse
	err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, &resp)
	return resp.Message, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var body struct {
		Error   string              `json:"error"`
		Message string              `json:"message"`
		Errors  []domain.FieldError `json:"errors"`
	}
	if err := sonic.Unmarshal(data, &body); err != nil {
		return apiErr
	}
	switch {
	case body.Error != "":
		apiErr.Message = body.Error
	case body.Message != "":
		apiErr.Message = body.Message
	}
	apiErr.Fields = body.Errors
	return apiErr
}
