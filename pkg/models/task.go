package models

import (
	"errors"
	"strconv"
	"strings"
)

// Task is one schedulable activity between two events of the project network.
type Task struct {
	ID         *int64 `json:"id,omitempty"`
	Name       string `json:"name"`
	Duration   int    `json:"duration"`
	StartEvent int    `json:"start_event"`
	EndEvent   int    `json:"end_event"`
}

// TaskDraft holds the raw text of the task form before it is appended.
// The zero value is an empty form.
type TaskDraft struct {
	Name       string `json:"name"`
	Duration   string `json:"duration"`
	StartEvent string `json:"start_event"`
	EndEvent   string `json:"end_event"`
}

var (
	ErrEmptyName     = errors.New("name is required")
	ErrInvalidNumber = errors.New("not a valid number")
)

// Parse converts the draft into a Task. It fails if the name is empty or if
// any of the numeric fields does not hold an integer.
func (d TaskDraft) Parse() (Task, error) {
	if d.Name == "" {
		return Task{}, ErrEmptyName
	}

	duration, err := parseField(d.Duration)
	if err != nil {
		return Task{}, err
	}
	start, err := parseField(d.StartEvent)
	if err != nil {
		return Task{}, err
	}
	end, err := parseField(d.EndEvent)
	if err != nil {
		return Task{}, err
	}

	return Task{
		Name:       d.Name,
		Duration:   duration,
		StartEvent: start,
		EndEvent:   end,
	}, nil
}

// IsZero reports whether every field of the draft is empty.
func (d TaskDraft) IsZero() bool {
	return d == TaskDraft{}
}

func parseField(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return v, nil
}
