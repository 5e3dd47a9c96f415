package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ldi/ganttform/internal/form"
	"github.com/ldi/ganttform/internal/scheduler"
	"github.com/ldi/ganttform/pkg/models"
	"github.com/sirupsen/logrus"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bulk-tasks/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/critical-path/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"critical_path":["Design","Build"],"gantt_chart_url":"http://127.0.0.1:8000/media/gantt.png"}`))
	})
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)
	return backend
}

func newTestServer(t *testing.T, baseURL string) (*Server, *form.Session) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	session := form.NewSession(scheduler.NewClient(baseURL, scheduler.DefaultTimeout), form.Options{Logger: log})
	return NewServer(session, log), session
}

func do(t *testing.T, h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func taskForm(name, duration, start, end string) url.Values {
	return url.Values{
		"name":        {name},
		"duration":    {duration},
		"start_event": {start},
		"end_event":   {end},
	}
}

func TestServer_Index(t *testing.T) {
	srv, _ := newTestServer(t, "http://127.0.0.1:1")
	w := do(t, srv.Handler(), "GET", "/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<title>"+PageTitle+"</title>") {
		t.Error("page missing title")
	}
	if strings.Contains(body, "<li>") {
		t.Error("expected empty task list")
	}
	if strings.Contains(body, "Ścieżka Krytyczna") || strings.Contains(body, "Wykres Gantta</h2>") {
		t.Error("expected no result sections before a submission")
	}
	if strings.Contains(body, "alert(") {
		t.Error("expected no alert without a notice")
	}
}

func TestServer_AddTask(t *testing.T) {
	srv, session := newTestServer(t, "http://127.0.0.1:1")
	h := srv.Handler()

	w := do(t, h, "POST", "/tasks", taskForm("Design", "3", "1", "2"))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %v", w.Code)
	}

	t.Run("GET /api/tasks", func(t *testing.T) {
		w := do(t, h, "GET", "/api/tasks", nil)
		if w.Code != http.StatusOK {
			t.Errorf("Expected status OK, got %v", w.Code)
		}
		var tasks []models.Task
		if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
			t.Fatalf("Failed to unmarshal tasks: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("Expected 1 task, got %d", len(tasks))
		}
		want := models.Task{Name: "Design", Duration: 3, StartEvent: 1, EndEvent: 2}
		if tasks[0] != want {
			t.Errorf("Expected %+v, got %+v", want, tasks[0])
		}
	})

	t.Run("GET / lists the task", func(t *testing.T) {
		body := do(t, h, "GET", "/", nil).Body.String()
		if !strings.Contains(body, "<li>Design (1 → 2) - 3 dni</li>") {
			t.Errorf("task line not rendered:\n%s", body)
		}
	})

	if len(session.Tasks()) != 1 {
		t.Errorf("Expected session to hold 1 task, got %d", len(session.Tasks()))
	}
}

func TestServer_AddInvalidTask(t *testing.T) {
	srv, session := newTestServer(t, "http://127.0.0.1:1")
	h := srv.Handler()

	w := do(t, h, "POST", "/tasks", taskForm("", "3", "1", "2"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %v", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "alert(") {
		t.Error("expected an alert for the invalid draft")
	}
	if !strings.Contains(body, `value="3"`) {
		t.Error("expected rejected draft values to be kept in the form")
	}
	if len(session.Tasks()) != 0 {
		t.Errorf("Expected no task, got %d", len(session.Tasks()))
	}

	// The alert is shown once.
	if strings.Contains(do(t, h, "GET", "/", nil).Body.String(), "alert(") {
		t.Error("expected notice to be dismissed after rendering")
	}
}

func TestServer_Submit(t *testing.T) {
	backend := newBackend(t)
	srv, session := newTestServer(t, backend.URL)
	h := srv.Handler()

	do(t, h, "POST", "/tasks", taskForm("Design", "3", "1", "2"))
	do(t, h, "POST", "/tasks", taskForm("Build", "5", "2", "3"))

	w := do(t, h, "POST", "/submit", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %v", w.Code)
	}
	if session.Phase() != form.PhaseIdle {
		t.Errorf("Expected idle phase, got %s", session.Phase())
	}

	body := do(t, h, "GET", "/", nil).Body.String()
	if !strings.Contains(body, "Design → Build") {
		t.Errorf("critical path not rendered:\n%s", body)
	}
	if !strings.Contains(body, `src="http://127.0.0.1:8000/media/gantt.png"`) {
		t.Errorf("gantt chart not rendered:\n%s", body)
	}

	t.Run("GET /api/result", func(t *testing.T) {
		w := do(t, h, "GET", "/api/result", nil)
		var res ResultResponse
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("Failed to unmarshal result: %v", err)
		}
		if res.Phase != "idle" {
			t.Errorf("Expected phase idle, got %s", res.Phase)
		}
		if len(res.CriticalPath) != 2 || res.CriticalPath[1] != "Build" {
			t.Errorf("Unexpected critical path %v", res.CriticalPath)
		}
		if res.GanttChartURL == "" {
			t.Error("Expected gantt chart url")
		}
	})
}

func TestServer_SubmitOutlivesRequest(t *testing.T) {
	backend := newBackend(t)
	srv, session := newTestServer(t, backend.URL)
	h := srv.Handler()

	do(t, h, "POST", "/tasks", taskForm("Design", "3", "1", "2"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/submit", strings.NewReader("")).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %v", w.Code)
	}
	res := session.Result()
	if res == nil || strings.Join(res.CriticalPath, ",") != "Design,Build" {
		t.Errorf("Expected the round trip to finish after the client left, got %+v", res)
	}
}

func TestServer_SubmitFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	srv, session := newTestServer(t, backend.URL)
	h := srv.Handler()

	do(t, h, "POST", "/tasks", taskForm("Design", "3", "1", "2"))
	w := do(t, h, "POST", "/submit", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %v", w.Code)
	}
	if len(session.Tasks()) != 1 {
		t.Errorf("Expected task list to be kept, got %d", len(session.Tasks()))
	}

	w = do(t, h, "GET", "/api/result", nil)
	var res ResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}
	if len(res.CriticalPath) != 0 || res.GanttChartURL != "" {
		t.Errorf("Expected empty result, got %+v", res)
	}
}

func TestServer_Static(t *testing.T) {
	srv, _ := newTestServer(t, "http://127.0.0.1:1")
	h := srv.Handler()

	w := do(t, h, "GET", "/static/style.css", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status OK, got %v", w.Code)
	}

	w = do(t, h, "GET", "/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %v", w.Code)
	}
}
