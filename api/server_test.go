package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/labstack/echo/v4"

	"taskmanager/domain"
	"taskmanager/storage"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	e := NewServer(storage.NewMemoryStore(), nil, quietLogger(), ServerOptions{})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

func (s *testServer) do(method, path, body string, out any) *http.Response {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.send(req, out)
}

func (s *testServer) send(req *http.Request, out any) *http.Response {
	s.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.t.Fatalf("read body: %v", err)
	}
	if out != nil {
		if err := sonic.Unmarshal(data, out); err != nil {
			s.t.Fatalf("decode %s: %v", data, err)
		}
	}
	return resp
}

func TestServerTaskLifecycle(t *testing.T) {
	s := newTestServer(t)

	var created domain.Task
	resp := s.do(http.MethodPost, "/api/tasks", `{"title":"Comprar leche","description":"Ir al supermercado"}`, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	if !domain.ValidID(created.ID) || created.Completed || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected created task: %+v", created)
	}
	if resp.Header.Get(echo.HeaderXRequestID) == "" {
		t.Fatal("expected a request id header")
	}

	var list []domain.Task
	s.do(http.MethodGet, "/api/tasks", "", &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	var updated domain.Task
	resp = s.do(http.MethodPut, "/api/tasks/"+created.ID, `{"completed":true}`, &updated)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	if !updated.Completed || updated.Title != created.Title || updated.Description != created.Description {
		t.Fatalf("update must only change provided fields: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("createdAt must not change")
	}

	var fetched domain.Task
	s.do(http.MethodGet, "/api/tasks/"+created.ID, "", &fetched)
	if !fetched.Completed {
		t.Fatalf("get after update: %+v", fetched)
	}

	var deleted messageResponse
	resp = s.do(http.MethodDelete, "/api/tasks/"+created.ID, "", &deleted)
	if resp.StatusCode != http.StatusOK || deleted.Message != "Task deleted successfully" {
		t.Fatalf("delete: %d %+v", resp.StatusCode, deleted)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		var notFound errorResponse
		resp = s.do(method, "/api/tasks/"+created.ID, "", &notFound)
		if resp.StatusCode != http.StatusNotFound || notFound.Error != "Task not found" {
			t.Fatalf("%s after delete: %d %+v", method, resp.StatusCode, notFound)
		}
	}
	var notFound errorResponse
	resp = s.do(http.MethodPut, "/api/tasks/"+created.ID, `{"title":"again"}`, &notFound)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("update after delete: expected 404, got %d", resp.StatusCode)
	}

	s.do(http.MethodGet, "/api/tasks", "", &list)
	if len(list) != 0 {
		t.Fatalf("update of a missing task must not create one: %+v", list)
	}
}

func TestServerCompletedFilter(t *testing.T) {
	s := newTestServer(t)
	var a, b domain.Task
	s.do(http.MethodPost, "/api/tasks", `{"title":"a"}`, &a)
	s.do(http.MethodPost, "/api/tasks", `{"title":"b"}`, &b)
	s.do(http.MethodPut, "/api/tasks/"+b.ID, `{"completed":true}`, nil)

	var all, completed, pending, other []domain.Task
	s.do(http.MethodGet, "/api/tasks", "", &all)
	s.do(http.MethodGet, "/api/tasks?completed=true", "", &completed)
	s.do(http.MethodGet, "/api/tasks?completed=false", "", &pending)
	s.do(http.MethodGet, "/api/tasks?completed=maybe", "", &other)

	if len(all) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all))
	}
	if len(completed) != 1 || completed[0].ID != b.ID {
		t.Fatalf("unexpected completed: %+v", completed)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("unexpected pending: %+v", pending)
	}
	if len(other) != 1 || other[0].ID != a.ID {
		t.Fatalf("non-true flag must select incomplete tasks: %+v", other)
	}
}

func TestServerUpperCaseIDs(t *testing.T) {
	s := newTestServer(t)

	var created domain.Task
	if resp := s.do(http.MethodPost, "/api/tasks", `{"title":"Case"}`, &created); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	upper := "/api/tasks/" + strings.ToUpper(created.ID)

	var got domain.Task
	if resp := s.do(http.MethodGet, upper, "", &got); resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if got.ID != created.ID {
		t.Fatalf("expected lower-case id %s, got %s", created.ID, got.ID)
	}

	var updated domain.Task
	if resp := s.do(http.MethodPut, upper, `{"title":null}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("null title: expected 400, got %d", resp.StatusCode)
	}
	if resp := s.do(http.MethodPut, upper, `{"completed":true}`, &updated); resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	if updated.ID != created.ID || !updated.Completed || updated.Title != "Case" {
		t.Fatalf("unexpected updated task: %+v", updated)
	}

	if resp := s.do(http.MethodDelete, upper, "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	if resp := s.do(http.MethodGet, "/api/tasks/"+created.ID, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestServerTrailingSlash(t *testing.T) {
	s := newTestServer(t)
	var list []domain.Task
	resp := s.do(http.MethodGet, "/api/tasks/", "", &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServerAcceptsGzipBody(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(`{"title":"compressed"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/tasks", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")

	var created domain.Task
	resp := s.send(req, &created)
	if resp.StatusCode != http.StatusCreated || created.Title != "compressed" {
		t.Fatalf("unexpected response: %d %+v", resp.StatusCode, created)
	}
}

func TestServerRejectsInvalidGzip(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/tasks", strings.NewReader("plain"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(echo.HeaderContentEncoding, "gzip")

	resp := s.send(req, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestServerAcceptsDeflateBody(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(`{"title":"deflated"}`)); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/tasks", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderContentEncoding, "deflate")

	var created domain.Task
	resp := s.send(req, &created)
	if resp.StatusCode != http.StatusCreated || created.Title != "deflated" {
		t.Fatalf("unexpected response: %d %+v", resp.StatusCode, created)
	}
}

func TestServerRejectsUnknownEncoding(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/tasks", strings.NewReader(`{"title":"x"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(echo.HeaderContentEncoding, "br")

	var body errorResponse
	resp := s.send(req, &body)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.StatusCode)
	}
	if body.Error != `Unsupported content encoding "br"` {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestServerIdentityEncodingPassesThrough(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/tasks", strings.NewReader(`{"title":"plain"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderContentEncoding, "identity")

	var created domain.Task
	resp := s.send(req, &created)
	if resp.StatusCode != http.StatusCreated || created.Title != "plain" {
		t.Fatalf("unexpected response: %d %+v", resp.StatusCode, created)
	}
}

func TestServerHealthz(t *testing.T) {
	s := newTestServer(t)
	var health healthResponse
	resp := s.do(http.MethodGet, "/healthz", "", &health)
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		t.Fatalf("unexpected health: %d %+v", resp.StatusCode, health)
	}
}
