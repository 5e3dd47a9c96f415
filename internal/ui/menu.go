package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	descriptionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
   ____             _   _    __
  / ___| __ _ _ __ | |_| |_ / _| ___  _ __ _ __ ___
 | |  _ / _' | '_ \| __| __| |_ / _ \| '__| '_ ' _ \
 | |_| | (_| | | | | |_| |_|  _| (_) | |  | | | | | |
  \____|\__,_|_| |_|\__|\__|_|  \___/|_|  |_| |_| |_|
`

// MenuItem is one subcommand reachable from the start menu.
type MenuItem struct {
	Name        string
	Description string
}

var MenuItems = []MenuItem{
	{Name: "form", Description: "Formularz zadań w terminalu"},
	{Name: "web", Description: "Formularz w przeglądarce"},
	{Name: "history", Description: "Historia wysłanych list zadań"},
	{Name: "mcp", Description: "Narzędzia MCP na stdio"},
	{Name: "init", Description: "Utwórz katalog .ganttform i bazę historii"},
}

type MenuModel struct {
	items    []MenuItem
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{
		items: MenuItems,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch k := key.String(); k {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter":
		m.selected = m.items[m.cursor].Name
		return m, tea.Quit

	default:
		// Digits pick an entry directly.
		if len(k) == 1 && k[0] >= '1' && int(k[0]-'1') < len(m.items) {
			m.cursor = int(k[0] - '1')
			m.selected = m.items[m.cursor].Name
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	nameWidth := 0
	for _, item := range m.items {
		nameWidth = max(nameWidth, len(item.Name))
	}

	for i, item := range m.items {
		line := fmt.Sprintf("%d. %-*s  %s", i+1, nameWidth, item.Name, descriptionStyle.Render(item.Description))
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n(strzałki lub j/k: wybór, 1-5 lub enter: otwórz, q: wyjście)\n")

	return s.String()
}

func (m MenuModel) Selected() string {
	return m.selected
}

// RunMenu shows the start menu and returns the chosen subcommand, or "" when
// the user quits.
func RunMenu() (string, error) {
	finalModel, err := tea.NewProgram(NewMenuModel()).Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
