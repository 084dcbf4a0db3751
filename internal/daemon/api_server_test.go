package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minhduonq/deep-vision/internal/api"
	"github.com/minhduonq/deep-vision/internal/task"
	"github.com/minhduonq/deep-vision/internal/testsupport"
)

func newStoreServer(t *testing.T) (*apiServer, *task.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := &apiServer{taskSvc: api.NewTaskService(store)}
	return srv, store
}

func TestAPIServerSubmitAndDescribe(t *testing.T) {
	srv, _ := newStoreServer(t)

	body := strings.NewReader(`{"user_request":"remove the watermark","input_ref":"/tmp/in.png"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	w := httptest.NewRecorder()
	srv.handleTasks(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var submitted api.SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitted.TaskID == "" || submitted.Status != string(task.StatusPending) {
		t.Fatalf("unexpected submit response %+v", submitted)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+submitted.TaskID, nil)
	w = httptest.NewRecorder()
	srv.handleTask(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var fetched api.TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode task response: %v", err)
	}
	if fetched.Task.UserRequest != "remove the watermark" {
		t.Fatalf("unexpected task %+v", fetched.Task)
	}
	if fetched.Task.Errors == nil {
		t.Fatal("errors must encode as an empty list")
	}
}

func TestAPIServerSubmitRejectsBadBody(t *testing.T) {
	srv, _ := newStoreServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	srv.handleTasks(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{"user_request":""}`))
	w = httptest.NewRecorder()
	srv.handleTasks(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing user_request, got %d", w.Code)
	}
}

func TestAPIServerListFilters(t *testing.T) {
	srv, store := newStoreServer(t)

	ctx := context.Background()
	pending := testsupport.NewTask(t, store, "restore this photo", "/tmp/a.png")
	failed := testsupport.NewTask(t, store, "remove the text", "/tmp/b.png")
	failed.MarkFailed("execute", "provider unavailable", "provider")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?status=pending", nil)
	w := httptest.NewRecorder()
	srv.handleTasks(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var listed api.TaskListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed.Tasks) != 1 || listed.Tasks[0].TaskID != pending.TaskID {
		t.Fatalf("unexpected filtered list %+v", listed.Tasks)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks?limit=oops", nil)
	w = httptest.NewRecorder()
	srv.handleTasks(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestAPIServerUnknownTask(t *testing.T) {
	srv, _ := newStoreServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/no-such-task", nil)
	w := httptest.NewRecorder()
	srv.handleTask(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/", nil)
	w = httptest.NewRecorder()
	srv.handleTask(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty id, got %d", w.Code)
	}
}

func TestAPIServerCancelTask(t *testing.T) {
	srv, store := newStoreServer(t)
	srv.daemon = &Daemon{store: store}

	created := testsupport.NewTask(t, store, "restore this photo", "/tmp/a.png")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+created.TaskID, nil)
	w := httptest.NewRecorder()
	srv.handleTask(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode cancel response: %v", err)
	}
	if resp["status"] != "cancel_requested" {
		t.Fatalf("unexpected cancel response %+v", resp)
	}

	fetched, err := store.GetByTaskID(context.Background(), created.TaskID)
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if !fetched.CancelRequested {
		t.Fatal("cancel flag must be set on the stored task")
	}

	// Only a missing task id refuses the request.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/no-such-task", nil)
	w = httptest.NewRecorder()
	srv.handleTask(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with valid token, got %d", w.Code)
	}

	open := authMiddleware("", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	open(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected open access with empty token, got %d", w.Code)
	}
}
