// Package form holds the state of the task form: the draft being edited, the
// list of tasks appended so far, and the result of the last submission.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ldi/ganttform/pkg/models"
	"github.com/sirupsen/logrus"
)

// InvalidFieldsNotice is shown to the user when a draft cannot be appended.
const InvalidFieldsNotice = "Wypełnij poprawnie wszystkie pola!"

var (
	ErrInvalidDraft = errors.New("invalid task fields")
	ErrSubmitFailed = errors.New("failed to submit tasks")
	ErrFetchFailed  = errors.New("failed to fetch critical path")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseAwaitingResult
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseAwaitingResult:
		return "awaiting_result"
	default:
		return "idle"
	}
}

// Scheduler is the remote service that computes critical paths.
type Scheduler interface {
	SubmitTasks(ctx context.Context, tasks []models.Task) (*models.SubmissionReceipt, error)
	GetCriticalPath(ctx context.Context, submissionID string) (*models.CriticalPathResult, error)
}

// Recorder stores the history of submissions. It is optional.
type Recorder interface {
	SaveSubmission(ctx context.Context, s *models.Submission) error
}

type Options struct {
	Recorder Recorder
	Logger   *logrus.Logger
	// ClearAfterSubmit empties the task list after a successful round trip.
	ClearAfterSubmit bool
}

type Session struct {
	mu        sync.Mutex
	scheduler Scheduler
	recorder  Recorder
	log       *logrus.Logger
	clear     bool

	draft       models.TaskDraft
	tasks       []models.Task
	result      *models.CriticalPathResult
	phase       Phase
	notice      string
	fetchFailed bool
}

func NewSession(scheduler Scheduler, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		scheduler: scheduler,
		recorder:  opts.Recorder,
		log:       log,
		clear:     opts.ClearAfterSubmit,
		tasks:     []models.Task{},
	}
}

// SetDraft replaces the draft being edited.
func (s *Session) SetDraft(d models.TaskDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
}

func (s *Session) Draft() models.TaskDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// AppendDraft validates d and appends it to the task list. On success the
// draft is reset to its zero value. On failure nothing is appended, d is kept
// as the current draft and a blocking notice is raised.
func (s *Session) AppendDraft(d models.TaskDraft) (models.Task, error) {
	task, err := d.Parse()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.draft = d
		s.notice = InvalidFieldsNotice
		return models.Task{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	s.tasks = append(s.tasks, task)
	s.draft = models.TaskDraft{}
	return task, nil
}

// Tasks returns a copy of the task list in insertion order.
func (s *Session) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Result() *models.CriticalPathResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	r.CriticalPath = append([]string(nil), s.result.CriticalPath...)
	return &r
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Notice returns the pending blocking notice, if any.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

func (s *Session) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = ""
}

// SubmitAll sends the whole task list and, once the service has accepted it,
// reads back the critical path for that submission. Failures are reported to
// the operator log; the returned error is for callers that want it.
func (s *Session) SubmitAll(ctx context.Context) error {
	s.mu.Lock()
	tasks := s.snapshotLocked()
	s.phase = PhaseSubmitting
	s.mu.Unlock()

	log := s.log.WithField("task_count", len(tasks))

	receipt, err := s.scheduler.SubmitTasks(ctx, tasks)
	if err != nil {
		log.WithError(err).Error("bulk task submission failed")
		s.setPhase(PhaseIdle)
		s.record(ctx, &models.Submission{
			Tasks:  tasks,
			Status: models.SubmissionStatusFailed,
			Error:  err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	log.WithField("submission_id", receipt.ID).Info("tasks submitted")
	s.setPhase(PhaseAwaitingResult)
	s.record(ctx, &models.Submission{
		ID:     receipt.ID,
		Tasks:  tasks,
		Status: models.SubmissionStatusSubmitted,
	})

	if err := s.FetchCriticalPath(ctx, receipt); err != nil {
		return err
	}

	if s.clear {
		s.clearSubmitted(len(tasks))
	}
	return nil
}

// FetchCriticalPath reads the result of a submission and replaces the
// current result with it. If the read fails the previous result stays.
func (s *Session) FetchCriticalPath(ctx context.Context, receipt *models.SubmissionReceipt) error {
	log := s.log.WithField("submission_id", receipt.ID)

	result, err := s.scheduler.GetCriticalPath(ctx, receipt.ID)
	if err != nil {
		log.WithError(err).Error("critical path fetch failed")
		s.mu.Lock()
		s.phase = PhaseIdle
		s.fetchFailed = true
		s.mu.Unlock()
		s.record(ctx, &models.Submission{
			ID:     receipt.ID,
			Status: models.SubmissionStatusFetchFailed,
			Error:  err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	log.WithField("path_length", len(result.CriticalPath)).Info("critical path received")

	s.mu.Lock()
	s.result = result
	s.phase = PhaseIdle
	s.fetchFailed = false
	s.mu.Unlock()

	s.record(ctx, &models.Submission{
		ID:            receipt.ID,
		Status:        models.SubmissionStatusCompleted,
		CriticalPath:  result.CriticalPath,
		GanttChartURL: result.GanttChartURL,
	})
	return nil
}

// clearSubmitted drops the first n tasks, the ones that were sent. Tasks
// appended while the submission was in flight stay in the list.
func (s *Session) clearSubmitted(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.tasks) {
		n = len(s.tasks)
	}
	s.tasks = append([]models.Task{}, s.tasks[n:]...)
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *Session) snapshotLocked() []models.Task {
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// record is best-effort: history must never break the form.
func (s *Session) record(ctx context.Context, sub *models.Submission) {
	if s.recorder == nil {
		return
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if err := s.recorder.SaveSubmission(ctx, sub); err != nil {
		s.log.WithError(err).WithField("submission_id", sub.ID).Warn("failed to record submission")
	}
}
