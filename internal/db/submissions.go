package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ldi/ganttform/pkg/models"
)

// timeLayout is fixed width so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveSubmission inserts a submission or updates the existing record with the
// same ID. Fields that the update does not carry (nil Tasks, or a result on a
// record that is not completed) keep their stored values.
func (db *DB) SaveSubmission(ctx context.Context, s *models.Submission) error {
	if err := db.saveSubmission(ctx, db.DB, s); err != nil {
		return err
	}
	db.triggerChange(ctx)
	return nil
}

func (db *DB) saveSubmission(ctx context.Context, exec executor, s *models.Submission) error {
	if s.ID == "" {
		return fmt.Errorf("failed to save submission: empty id")
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	var taskCount, tasksJSON any
	if s.Tasks != nil {
		data, err := json.Marshal(s.Tasks)
		if err != nil {
			return fmt.Errorf("failed to encode submission tasks: %w", err)
		}
		taskCount = len(s.Tasks)
		tasksJSON = string(data)
	}

	var pathJSON, chartURL any
	if s.Status == models.SubmissionStatusCompleted {
		path := s.CriticalPath
		if path == nil {
			path = []string{}
		}
		data, err := json.Marshal(path)
		if err != nil {
			return fmt.Errorf("failed to encode critical path: %w", err)
		}
		pathJSON = string(data)
		chartURL = s.GanttChartURL
	}

	query := `
		INSERT INTO submissions (id, task_count, tasks_json, status, error, critical_path, gantt_chart_url, created_at, updated_at)
		VALUES (?, COALESCE(?, 0), COALESCE(?, '[]'), ?, ?, COALESCE(?, '[]'), COALESCE(?, ''), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task_count = COALESCE(?, submissions.task_count),
			tasks_json = COALESCE(?, submissions.tasks_json),
			status = excluded.status,
			error = excluded.error,
			critical_path = COALESCE(?, submissions.critical_path),
			gantt_chart_url = COALESCE(?, submissions.gantt_chart_url),
			updated_at = excluded.updated_at
	`
	_, err := exec.ExecContext(ctx, query,
		s.ID, taskCount, tasksJSON, string(s.Status), s.Error, pathJSON, chartURL,
		s.CreatedAt.UTC().Format(timeLayout), s.UpdatedAt.UTC().Format(timeLayout),
		taskCount, tasksJSON, pathJSON, chartURL,
	)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by its ID. It returns nil if none exists.
func (db *DB) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	query := `
		SELECT id, tasks_json, status, error, critical_path, gantt_chart_url, created_at, updated_at
		FROM submissions
		WHERE id = ?
	`
	s, err := scanSubmission(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

// ListSubmissions returns the most recent submissions, newest first.
// A limit of zero or less returns all of them.
func (db *DB) ListSubmissions(ctx context.Context, limit int) ([]*models.Submission, error) {
	query := `
		SELECT id, tasks_json, status, error, critical_path, gantt_chart_url, created_at, updated_at
		FROM submissions
		ORDER BY created_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return subs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	s := &models.Submission{}
	var status, tasksJSON, pathJSON, createdAt, updatedAt string
	err := row.Scan(&s.ID, &tasksJSON, &status, &s.Error, &pathJSON, &s.GanttChartURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	s.Status = models.SubmissionStatus(status)
	if err := json.Unmarshal([]byte(tasksJSON), &s.Tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(pathJSON), &s.CriticalPath); err != nil {
		return nil, fmt.Errorf("failed to decode critical path of %s: %w", s.ID, err)
	}
	if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at of %s: %w", s.ID, err)
	}
	if s.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at of %s: %w", s.ID, err)
	}
	return s, nil
}
