// Package installer is the first-run wizard behind `tusk install`. It asks
// for the settings `tusk start` needs and returns them as env variables.
package installer

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/service/ui"
)

var ErrCancelled = errors.New("installation cancelled")

var (
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{EnvVars: make(map[string]string)}
}

// Step is one screen of the wizard. Update returns nil when the step is done.
type Step interface {
	Skip(state *InstallState) bool
	Init(state *InstallState) tea.Cmd
	Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd)
	View(state *InstallState) string
}

type model struct {
	steps    []Step
	current  int
	state    *InstallState
	quitting bool
}

func newModel(steps []Step) model {
	return model{steps: steps, state: NewInstallState()}
}

func (m model) Init() tea.Cmd {
	if len(m.steps) == 0 {
		return tea.Quit
	}
	return m.steps[0].Init(m.state)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.done() {
		return m, tea.Quit
	}

	next, cmd := m.steps[m.current].Update(msg, m.state)
	if next != nil {
		m.steps[m.current] = next
		return m, cmd
	}
	return m.advance()
}

// advance moves past the finished step and any steps that do not apply.
func (m model) advance() (tea.Model, tea.Cmd) {
	m.current++
	for !m.done() && m.steps[m.current].Skip(m.state) {
		m.current++
	}
	if m.done() {
		return m, tea.Quit
	}
	return m, m.steps[m.current].Init(m.state)
}

func (m model) done() bool {
	return m.current >= len(m.steps)
}

func (m model) View() string {
	if m.quitting {
		return "Installation cancelled.\n"
	}
	if m.done() {
		return "Configuration complete!\n"
	}
	return ui.TitleStyle.Render(fmt.Sprintf("Installing %s", core.TuskName)) + "\n" +
		m.steps[m.current].View(m.state)
}

// RunWizard runs the full-screen wizard and returns the collected variables.
func RunWizard() (map[string]string, error) {
	p := tea.NewProgram(newModel(defaultSteps()), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m := final.(model)
	if m.quitting || !m.done() {
		return nil, ErrCancelled
	}
	return m.state.EnvVars, nil
}
