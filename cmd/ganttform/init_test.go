package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ldi/ganttform/internal/config"
	"github.com/ldi/ganttform/internal/db"
)

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	out := &bytes.Buffer{}
	if err := runInit(out, config.Default(), tmpDir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	projectDir := filepath.Join(tmpDir, config.Dir)
	if _, err := os.Stat(projectDir); os.IsNotExist(err) {
		t.Errorf("%s directory was not created", config.Dir)
	}

	content, err := os.ReadFile(filepath.Join(projectDir, ".gitignore"))
	if err != nil {
		t.Errorf("failed to read .gitignore: %v", err)
	}
	if string(content) != gitignoreContent {
		t.Errorf(".gitignore content mismatch: expected %q, got %q", gitignoreContent, string(content))
	}

	if _, err := os.Stat(filepath.Join(projectDir, "history.db")); os.IsNotExist(err) {
		t.Errorf("database file was not created")
	}
}

func TestInitWithExistingSnapshot(t *testing.T) {
	tmpDir := t.TempDir()

	projectDir := filepath.Join(tmpDir, config.Dir)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatalf("failed to create %s dir: %v", config.Dir, err)
	}

	snapshotContent := `{"id":"sub-1","tasks":[{"name":"Design","duration":3,"start_event":1,"end_event":2}],"status":"completed","critical_path":["Design"],"created_at":"2026-01-02T10:00:00Z","updated_at":"2026-01-02T10:00:01Z"}
`
	if err := os.WriteFile(filepath.Join(projectDir, "snapshot.jsonl"), []byte(snapshotContent), 0644); err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}

	out := &bytes.Buffer{}
	if err := runInit(out, config.Default(), tmpDir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	database, err := db.Open(filepath.Join(projectDir, "history.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer database.Close()

	sub, err := database.GetSubmission(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if sub == nil {
		t.Fatal("snapshot submission was not imported")
	}
	if len(sub.Tasks) != 1 || sub.Tasks[0].Name != "Design" {
		t.Errorf("unexpected imported tasks: %+v", sub.Tasks)
	}
	if !bytes.Contains(out.Bytes(), []byte("Imported snapshot")) {
		t.Errorf("expected import to be reported, got %q", out.String())
	}
}

func TestInitOverwritesGitignore(t *testing.T) {
	tmpDir := t.TempDir()

	projectDir := filepath.Join(tmpDir, config.Dir)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatalf("failed to create %s dir: %v", config.Dir, err)
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("old-content\n"), 0644); err != nil {
		t.Fatalf("failed to create initial .gitignore: %v", err)
	}

	if err := runInit(&bytes.Buffer{}, config.Default(), tmpDir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		t.Fatalf("failed to read .gitignore: %v", err)
	}
	if string(content) != gitignoreContent {
		t.Errorf(".gitignore was not overwritten: expected %q, got %q", gitignoreContent, string(content))
	}
}

func TestResolvePath(t *testing.T) {
	if got := resolvePath("proj", ".ganttform/history.db"); got != filepath.Join("proj", ".ganttform/history.db") {
		t.Errorf("unexpected relative resolution: %s", got)
	}
	abs := filepath.Join(t.TempDir(), "h.db")
	if got := resolvePath("proj", abs); got != abs {
		t.Errorf("expected absolute path to be kept, got %s", got)
	}
	if got := resolvePath("proj", ":memory:"); got != ":memory:" {
		t.Errorf("expected :memory: to be kept, got %s", got)
	}
}
