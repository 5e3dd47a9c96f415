package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/ganttform/internal/form"
	"github.com/ldi/ganttform/internal/ui/components"
	"github.com/ldi/ganttform/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedFieldStyle = fieldStyle.
				BorderForeground(lipgloss.Color("63"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 1).
			MarginRight(2)

	submitButtonStyle = buttonStyle.
				Background(lipgloss.Color("35"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("252")).
			Padding(1, 3)
)

const (
	FormTitle    = "Zarządzanie zadaniami"
	AddLabel     = "Dodaj"
	SubmitLabel  = "Oblicz ścieżkę krytyczną"
	AwaitingText = "Obliczanie ścieżki krytycznej…"
)

const (
	fieldName = iota
	fieldDuration
	fieldStart
	fieldEnd
	fieldCount
)

var fieldPlaceholders = [fieldCount]string{"Nazwa", "Czas (dni)", "Start", "Koniec"}

type submitDoneMsg struct {
	err error
}

// FormModel is the terminal rendition of the task form.
type FormModel struct {
	ctx        context.Context
	session    *form.Session
	inputs     []textinput.Model
	focus      int
	taskList   *components.TaskList
	result     *components.ResultPanel
	spinner    spinner.Model
	submitting bool
	width      int
	height     int
	ready      bool
	quitting   bool
}

func NewFormModel(ctx context.Context, session *form.Session) *FormModel {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Placeholder = fieldPlaceholders[i]
		in.Prompt = ""
		in.CharLimit = 9
		if i == fieldName {
			in.CharLimit = 120
		}
		inputs[i] = in
	}
	inputs[fieldName].Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &FormModel{
		ctx:      ctx,
		session:  session,
		inputs:   inputs,
		taskList: components.NewTaskList(0, 0),
		result:   components.NewResultPanel(0),
		spinner:  s,
	}
	m.loadDraft(session.Draft())
	m.refresh()
	return m
}

func (m *FormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

		// A pending notice blocks the form until it is dismissed.
		if m.session.Notice() != "" {
			switch msg.String() {
			case "enter", "esc", " ":
				m.session.DismissNotice()
			}
			return m, nil
		}

		switch msg.String() {
		case "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab", "down":
			m.moveFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.moveFocus(-1)
			return m, nil
		case "enter", "ctrl+a":
			m.appendDraft()
			return m, nil
		case "ctrl+s":
			if m.submitting {
				return m, nil
			}
			m.submitting = true
			return m, tea.Batch(m.submit(), m.spinner.Tick)
		case "pgup", "pgdown":
			return m, m.taskList.Update(msg)
		}

		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		m.session.SetDraft(m.draft())
		return m, cmd

	case submitDoneMsg:
		// Failures are already on the operator log; the form shows nothing more.
		m.submitting = false
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *FormModel) submit() tea.Cmd {
	ctx := m.ctx
	session := m.session
	return func() tea.Msg {
		return submitDoneMsg{err: session.SubmitAll(ctx)}
	}
}

func (m *FormModel) appendDraft() {
	if _, err := m.session.AppendDraft(m.draft()); err != nil {
		return
	}
	m.loadDraft(m.session.Draft())
	m.setFocus(fieldName)
	m.refresh()
}

func (m *FormModel) draft() models.TaskDraft {
	return models.TaskDraft{
		Name:       m.inputs[fieldName].Value(),
		Duration:   m.inputs[fieldDuration].Value(),
		StartEvent: m.inputs[fieldStart].Value(),
		EndEvent:   m.inputs[fieldEnd].Value(),
	}
}

func (m *FormModel) loadDraft(d models.TaskDraft) {
	m.inputs[fieldName].SetValue(d.Name)
	m.inputs[fieldDuration].SetValue(d.Duration)
	m.inputs[fieldStart].SetValue(d.StartEvent)
	m.inputs[fieldEnd].SetValue(d.EndEvent)
}

func (m *FormModel) moveFocus(direction int) {
	m.setFocus((m.focus + direction + fieldCount) % fieldCount)
}

func (m *FormModel) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

// refresh pulls the task list and result from the session.
func (m *FormModel) refresh() {
	v := m.session.Render()
	m.taskList.SetLines(v.TaskLines)
	m.result.PathLine = v.PathLine
	m.result.ChartURL = v.ChartURL
	m.result.Unavailable = v.ResultUnavailable
	if m.ready {
		m.taskList.SetSize(m.width, m.listHeight())
	}
}

func (m *FormModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	fieldWidth := (width - 4*fieldCount) / fieldCount
	if fieldWidth < 8 {
		fieldWidth = 8
	}
	for i := range m.inputs {
		m.inputs[i].Width = fieldWidth
	}

	m.result.Width = width - 2
	m.taskList.SetSize(width, m.listHeight())
}

func (m *FormModel) listHeight() int {
	// title, fields, buttons, status, help and the result panel
	occupied := 1 + 3 + 2 + 2 + 1
	if !m.result.Empty() {
		occupied += lipgloss.Height(m.result.View()) + 1
	}
	h := m.height - occupied - 2
	if h < 3 {
		h = 3
	}
	return h
}

func (m *FormModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	if notice := m.session.Notice(); notice != "" {
		modal := modalStyle.Render(notice + "\n\n" + statusStyle.Render("enter: OK"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(FormTitle))
	b.WriteString("\n")
	b.WriteString(m.fieldsView())
	b.WriteString("\n")
	b.WriteString(buttonStyle.Render(AddLabel+" [enter]") + submitButtonStyle.Render(SubmitLabel+" [ctrl+s]"))
	b.WriteString("\n\n")
	b.WriteString(m.taskList.View())
	b.WriteString("\n")

	if m.submitting {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), AwaitingText)))
		b.WriteString("\n")
	}

	if !m.result.Empty() {
		b.WriteString("\n")
		b.WriteString(m.result.View())
		b.WriteString("\n")
	}

	b.WriteString(m.helpView())
	return b.String()
}

func (m *FormModel) fieldsView() string {
	fields := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		style := fieldStyle
		if i == m.focus {
			style = focusedFieldStyle
		}
		fields[i] = lipgloss.JoinVertical(lipgloss.Left,
			labelStyle.Render(fieldPlaceholders[i]),
			style.Render(in.View()),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, fields...)
}

func (m *FormModel) helpView() string {
	return statusStyle.Render("tab/shift+tab: pole • enter/ctrl+a: dodaj • ctrl+s: wyślij • pgup/pgdown: przewiń • esc: wyjście")
}

// RunForm runs the terminal form until the user quits or ctx is done.
func RunForm(ctx context.Context, session *form.Session) error {
	p := tea.NewProgram(NewFormModel(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}
