package models

import "time"

// CriticalPathResult is what the scheduling service returns for a submission.
type CriticalPathResult struct {
	CriticalPath  []string `json:"critical_path"`
	GanttChartURL string   `json:"gantt_chart_url"`
}

// SubmissionReceipt identifies one bulk submission so its result can be read back.
type SubmissionReceipt struct {
	ID string `json:"submission_id"`
}

type SubmissionStatus string

const (
	SubmissionStatusFailed      SubmissionStatus = "failed"
	SubmissionStatusSubmitted   SubmissionStatus = "submitted"
	SubmissionStatusCompleted   SubmissionStatus = "completed"
	SubmissionStatusFetchFailed SubmissionStatus = "fetch_failed"
)

// Submission is the local history record of one submit round trip.
type Submission struct {
	ID            string           `json:"id"`
	Tasks         []Task           `json:"tasks"`
	Status        SubmissionStatus `json:"status"`
	Error         string           `json:"error,omitempty"`
	CriticalPath  []string         `json:"critical_path,omitempty"`
	GanttChartURL string           `json:"gantt_chart_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
