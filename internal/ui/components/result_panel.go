package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	pathBoxStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1)

	warningBoxStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	panelHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true).
			Padding(0, 1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

const (
	CriticalPathTitle = "Ścieżka Krytyczna"
	GanttChartTitle   = "Wykres Gantta"
	ResultUnavailable = "Nie udało się pobrać ścieżki krytycznej"
)

// ResultPanel shows the critical path and the Gantt chart link of the last
// submission. Each part is only drawn when it has content.
type ResultPanel struct {
	PathLine    string
	ChartURL    string
	Unavailable bool
	Width       int
}

func NewResultPanel(width int) *ResultPanel {
	return &ResultPanel{Width: width}
}

func (p *ResultPanel) Empty() bool {
	return p.PathLine == "" && p.ChartURL == "" && !p.Unavailable
}

func (p *ResultPanel) View() string {
	var parts []string

	if p.Unavailable {
		parts = append(parts, p.box(warningBoxStyle, ResultUnavailable))
	}

	if p.PathLine != "" {
		parts = append(parts, panelHeaderStyle.Render(CriticalPathTitle)+"\n"+p.box(pathBoxStyle, p.PathLine))
	}

	if p.ChartURL != "" {
		parts = append(parts, panelHeaderStyle.Render(GanttChartTitle)+"\n"+linkStyle.Render(p.ChartURL))
	}

	return strings.Join(parts, "\n")
}

func (p *ResultPanel) box(style lipgloss.Style, text string) string {
	if p.Width <= 0 {
		return style.Render(text)
	}
	innerWidth := p.Width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}
	wrapped := lipgloss.NewStyle().Width(innerWidth).Render(text)
	return style.Width(p.Width).Render(wrapped)
}
