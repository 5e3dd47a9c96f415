package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	taskLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	taskIndexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// TaskList renders the appended tasks in a scrolling viewport that follows
// the newest entry.
type TaskList struct {
	viewport viewport.Model
	lines    []string
	ready    bool
	width    int
	height   int
}

func NewTaskList(width, height int) *TaskList {
	return &TaskList{
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
	}
}

func (l *TaskList) SetSize(width, height int) {
	l.width = width
	l.height = height
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !l.ready {
		l.viewport = viewport.New(vpWidth, height)
		l.ready = true
	} else {
		l.viewport.Width = vpWidth
		l.viewport.Height = height
	}
	l.updateContent()
}

// SetLines replaces the rendered task lines. The view scrolls to the bottom
// when the list grew.
func (l *TaskList) SetLines(lines []string) {
	grew := len(lines) > len(l.lines)
	l.lines = append(l.lines[:0], lines...)
	l.updateContent()
	if grew {
		l.viewport.GotoBottom()
	}
}

func (l *TaskList) Len() int {
	return len(l.lines)
}

func (l *TaskList) updateContent() {
	if len(l.lines) == 0 {
		l.viewport.SetContent(placeholderStyle.Render("Brak zadań"))
		return
	}

	var sb strings.Builder
	for i, line := range l.lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(taskIndexStyle.Render(fmt.Sprintf("%2d.", i+1)))
		sb.WriteString(" ")
		sb.WriteString(line)
	}

	content := sb.String()
	if width := l.viewport.Width; width > 0 {
		content = taskLineStyle.Width(width).Render(content)
	} else {
		content = taskLineStyle.Render(content)
	}
	l.viewport.SetContent(content)
}

func (l *TaskList) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	return cmd
}

func (l *TaskList) View() string {
	if !l.ready {
		return ""
	}

	if l.viewport.TotalLineCount() <= l.viewport.Height {
		return l.viewport.View()
	}

	h := l.viewport.Height
	handlePos := int(float64(h-1) * l.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, l.viewport.View(), sb.String())
}

func (l *TaskList) Height() int {
	return l.viewport.Height
}
