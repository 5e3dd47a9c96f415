package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ldi/ganttform/pkg/models"
)

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		// Best-effort: a failed export must not fail the write that triggered it.
		_ = db.ExportSnapshot(ctx, path)
	})
}

// ExportSnapshot writes every submission as one JSON line, oldest first, to
// the given path atomically using a temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	subs, err := db.ListSubmissions(ctx, 0)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	for i := len(subs) - 1; i >= 0; i-- {
		line, err := json.Marshal(subs[i])
		if err != nil {
			return fmt.Errorf("failed to encode submission %s: %w", subs[i].ID, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ImportSnapshot reads a JSONL snapshot and upserts every submission in one
// transaction. Existing records with the same ID are overwritten.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var s models.Submission
		if err := json.Unmarshal(line, &s); err != nil {
			return fmt.Errorf("failed to parse snapshot line %d: %w", lineNo, err)
		}
		if s.Tasks == nil {
			s.Tasks = []models.Task{}
		}
		if err := db.importSubmission(ctx, tx, &s); err != nil {
			return fmt.Errorf("failed to import snapshot line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read snapshot file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// importSubmission writes a record verbatim, result fields included, whatever its status.
func (db *DB) importSubmission(ctx context.Context, exec executor, s *models.Submission) error {
	if s.ID == "" {
		return fmt.Errorf("submission without id")
	}
	tasksJSON, err := json.Marshal(s.Tasks)
	if err != nil {
		return err
	}
	path := s.CriticalPath
	if path == nil {
		path = []string{}
	}
	pathJSON, err := json.Marshal(path)
	if err != nil {
		return err
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}

	query := `
		INSERT OR REPLACE INTO submissions (id, task_count, tasks_json, status, error, critical_path, gantt_chart_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = exec.ExecContext(ctx, query,
		s.ID, len(s.Tasks), string(tasksJSON), string(s.Status), s.Error, string(pathJSON), s.GanttChartURL,
		s.CreatedAt.UTC().Format(timeLayout), s.UpdatedAt.UTC().Format(timeLayout),
	)
	return err
}
