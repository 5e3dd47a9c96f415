package form

import (
	"fmt"
	"strings"

	"github.com/ldi/ganttform/pkg/models"
)

// PathSeparator joins the events of a critical path for display.
const PathSeparator = " → "

// View is a snapshot of everything a form surface needs to draw.
type View struct {
	Draft     models.TaskDraft
	Tasks     []models.Task
	TaskLines []string
	Phase     Phase
	Notice    string

	// PathLine is empty when there is no critical path to show.
	PathLine string
	// ChartURL is empty when there is no chart to show.
	ChartURL string
	// ResultUnavailable is set when the last result read failed.
	ResultUnavailable bool
}

func (v View) Awaiting() bool {
	return v.Phase != PhaseIdle
}

// FormatTask renders a task the way the task list shows it.
func FormatTask(t models.Task) string {
	return fmt.Sprintf("%s (%d → %d) - %d dni", t.Name, t.StartEvent, t.EndEvent, t.Duration)
}

func FormatPath(path []string) string {
	return strings.Join(path, PathSeparator)
}

// Render projects the current session state into a View.
func (s *Session) Render() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.snapshotLocked()
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = FormatTask(t)
	}

	v := View{
		Draft:             s.draft,
		Tasks:             tasks,
		TaskLines:         lines,
		Phase:             s.phase,
		Notice:            s.notice,
		ResultUnavailable: s.fetchFailed,
	}
	if s.result != nil {
		if len(s.result.CriticalPath) > 0 {
			v.PathLine = FormatPath(s.result.CriticalPath)
		}
		v.ChartURL = s.result.GanttChartURL
	}
	return v
}
