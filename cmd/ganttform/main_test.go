package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/ldi/ganttform/internal/config"
	"github.com/ldi/ganttform/internal/ui"
	"github.com/ldi/ganttform/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DB.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Log.Level = "error"
	return cfg
}

func TestRootCommandCoversMenu(t *testing.T) {
	root := newRootCmd()
	for _, item := range ui.MenuItems {
		choice := item.Name
		sub, _, err := root.Find([]string{choice})
		if err != nil || sub == root {
			t.Errorf("menu choice %q has no command", choice)
			continue
		}
		if sub.RunE == nil {
			t.Errorf("command %q has no RunE", choice)
		}
	}
}

func TestOpenAppRecordsSubmissions(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/bulk-tasks/":
			w.Write([]byte(`{"submission_id":"sub-1"}`))
		case "/api/critical-path/":
			w.Write([]byte(`{"critical_path":["Design","Build"],"gantt_chart_url":"http://example.test/g.png"}`))
		}
	}))
	defer backend.Close()

	cfg := testConfig(t)
	cfg.API.BaseURL = backend.URL
	cfg.History.SnapshotPath = filepath.Join(t.TempDir(), "snapshot.jsonl")

	ctx := context.Background()
	a, err := openApp(ctx, cfg, filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("openApp failed: %v", err)
	}
	defer a.Close()

	if a.db == nil {
		t.Fatal("expected history to be enabled")
	}

	if _, err := a.session.AppendDraft(models.TaskDraft{Name: "Design", Duration: "3", StartEvent: "1", EndEvent: "2"}); err != nil {
		t.Fatalf("AppendDraft failed: %v", err)
	}
	if err := a.session.SubmitAll(ctx); err != nil {
		t.Fatalf("SubmitAll failed: %v", err)
	}

	sub, err := a.db.GetSubmission(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if sub == nil || sub.Status != models.SubmissionStatusCompleted {
		t.Fatalf("expected completed submission, got %+v", sub)
	}
	if a.history() == nil {
		t.Error("expected history tools to be available")
	}
}

func TestOpenAppWithoutHistory(t *testing.T) {
	cfg := testConfig(t)
	// A directory cannot be opened as a database file.
	cfg.DB.Path = t.TempDir()

	a, err := openApp(context.Background(), cfg, filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("openApp failed: %v", err)
	}
	defer a.Close()

	if a.db != nil {
		t.Error("expected history to be disabled")
	}
	if a.history() != nil {
		t.Error("expected nil history")
	}
	if a.session == nil {
		t.Fatal("expected a working session")
	}
}

func seedHistory(t *testing.T, cfg *config.Config) {
	t.Helper()
	ctx := context.Background()
	database, err := openHistory(ctx, cfg)
	if err != nil {
		t.Fatalf("openHistory failed: %v", err)
	}
	defer database.Close()

	tasks := []models.Task{{Name: "Design", Duration: 3, StartEvent: 1, EndEvent: 2}}
	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	subs := []*models.Submission{
		{ID: "aaaaaaaa-1111", Tasks: tasks, Status: models.SubmissionStatusFailed, Error: "connection refused", CreatedAt: older},
		{ID: "bbbbbbbb-2222", Tasks: tasks, Status: models.SubmissionStatusCompleted, CriticalPath: []string{"Design", "Build"}, CreatedAt: older.Add(time.Minute)},
	}
	for _, s := range subs {
		if err := database.SaveSubmission(ctx, s); err != nil {
			t.Fatalf("SaveSubmission failed: %v", err)
		}
	}
}

func TestHistory(t *testing.T) {
	color.NoColor = true
	cfg := testConfig(t)
	seedHistory(t, cfg)

	out := &bytes.Buffer{}
	if err := runHistory(context.Background(), out, cfg, 20, false); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"ID", "STATUS", "aaaaaaaa", "bbbbbbbb", "failed", "completed", "connection refused", "Design → Build"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
	if strings.Contains(text, "aaaaaaaa-1111") {
		t.Error("expected ids to be shortened")
	}
}

func TestHistoryJSON(t *testing.T) {
	cfg := testConfig(t)
	seedHistory(t, cfg)

	out := &bytes.Buffer{}
	if err := runHistory(context.Background(), out, cfg, 1, true); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	var subs []models.Submission
	if err := json.Unmarshal(out.Bytes(), &subs); err != nil {
		t.Fatalf("failed to decode output: %v\n%s", err, out.String())
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission with limit 1, got %d", len(subs))
	}
	if subs[0].ID != "bbbbbbbb-2222" {
		t.Errorf("expected newest submission first, got %s", subs[0].ID)
	}
}

func TestHistoryEmpty(t *testing.T) {
	color.NoColor = true
	cfg := testConfig(t)

	out := &bytes.Buffer{}
	if err := runHistory(context.Background(), out, cfg, 20, false); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}
	if !strings.Contains(out.String(), "No submissions") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := runHistory(context.Background(), out, cfg, 20, true); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %q", out.String())
	}
}

func TestLoadConfigAPIURLFlag(t *testing.T) {
	t.Chdir(t.TempDir())

	prev := flagAPIURL
	t.Cleanup(func() { flagAPIURL = prev })

	flagAPIURL = "http://scheduler.test:9000"
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.API.BaseURL != "http://scheduler.test:9000" {
		t.Errorf("expected flag to override base url, got %s", cfg.API.BaseURL)
	}
}

func TestExecuteHistoryCommand(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	t.Chdir(dir)

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"history"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "No submissions") {
		t.Errorf("unexpected output %q", out.String())
	}
}
