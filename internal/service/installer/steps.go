package installer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

const enabled = "true"

func defaultSteps() []Step {
	return []Step{
		&choiceStep{
			title: "Select your LLM provider:",
			options: []option{
				{label: "OpenAI", vars: map[string]string{"LLM_PROVIDER": "openai"}},
				{label: "OpenRouter", vars: map[string]string{"LLM_PROVIDER": "openrouter"}},
				{label: "Ollama", vars: map[string]string{"LLM_PROVIDER": "ollama"}},
				{label: "Custom OpenAI-compatible endpoint", vars: map[string]string{"LLM_PROVIDER": "custom"}},
			},
		},
		&inputStep{
			title:  "Base URL of the endpoint",
			envKey: "LLM_BASE_URL",
			skip:   func(s *InstallState) bool { return s.EnvVars["LLM_PROVIDER"] != "custom" },
		},
		&inputStep{
			title:    "API key",
			envKey:   "LLM_API_KEY",
			secret:   true,
			optional: func(s *InstallState) bool { return s.EnvVars["LLM_PROVIDER"] == "ollama" },
		},
		&inputStep{
			title:  "Model",
			envKey: "LLM_MODEL",
			def:    defaultModel,
		},
		&inputStep{
			title:  "Bearer token for the HTTP API",
			envKey: "API_BEARER_TOKEN",
			secret: true,
			def:    func(*InstallState) string { return uuid.NewString() },
			hint:   "press enter to generate one",
		},
		&choiceStep{
			title: "How will you talk to the agent?",
			options: []option{
				{label: "HTTP API", vars: channels(true, false, false)},
				{label: "HTTP API and Telegram", vars: channels(true, true, false)},
				{label: "Terminal chat", vars: channels(false, false, true)},
			},
		},
		&inputStep{
			title:  "Telegram bot token",
			envKey: "TELEGRAM_TOKEN",
			secret: true,
			skip:   telegramOff,
		},
		&inputStep{
			title:    "Your Telegram user id (owner)",
			envKey:   "TELEGRAM_OWNER_ID",
			skip:     telegramOff,
			validate: validateInt64,
		},
		&choiceStep{
			title: "Keep short-term memory across restarts?",
			options: []option{
				{label: "Yes, save a snapshot on disk", vars: map[string]string{"MEMORY_PERSISTENCE_ENABLED": enabled}},
				{label: "No, memory only", vars: map[string]string{"MEMORY_PERSISTENCE_ENABLED": "false"}},
			},
		},
		&confirmStep{},
	}
}

func defaultModel(s *InstallState) string {
	switch s.EnvVars["LLM_PROVIDER"] {
	case "openai":
		return "gpt-3.5-turbo"
	case "openrouter":
		return "openai/gpt-4o-mini"
	case "ollama":
		return "llama3.2"
	}
	return ""
}

func channels(http, telegram, cli bool) map[string]string {
	return map[string]string{
		"ENABLE_HTTP":     cast.ToString(http),
		"ENABLE_TELEGRAM": cast.ToString(telegram),
		"ENABLE_CLI":      cast.ToString(cli),
	}
}

func telegramOff(s *InstallState) bool {
	return s.EnvVars["ENABLE_TELEGRAM"] != enabled
}

func validateInt64(v string) error {
	if _, err := cast.ToInt64E(v); err != nil {
		return fmt.Errorf("%q is not a number", v)
	}
	return nil
}

type option struct {
	label string
	vars  map[string]string
}

// choiceStep sets every variable of the selected option.
type choiceStep struct {
	title   string
	options []option
	cursor  int
}

func (s *choiceStep) Skip(*InstallState) bool { return false }

func (s *choiceStep) Init(*InstallState) tea.Cmd {
	s.cursor = 0
	return nil
}

func (s *choiceStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.options)-1 {
			s.cursor++
		}
	case "enter":
		for k, v := range s.options[s.cursor].vars {
			state.EnvVars[k] = v
		}
		return nil, nil
	}
	return s, nil
}

func (s *choiceStep) View(*InstallState) string {
	var b strings.Builder
	b.WriteString(s.title + "\n\n")
	for i, o := range s.options {
		if i == s.cursor {
			b.WriteString(selStyle.Render("❯ "+o.label) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+o.label) + "\n")
		}
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}

// inputStep reads one value. An empty answer takes def, and is accepted
// as-is only when the step is optional.
type inputStep struct {
	title    string
	envKey   string
	hint     string
	secret   bool
	skip     func(*InstallState) bool
	optional func(*InstallState) bool
	def      func(*InstallState) string
	validate func(string) error

	input      textinput.Model
	defaultVal string
	err        error
}

func (s *inputStep) Skip(state *InstallState) bool {
	return s.skip != nil && s.skip(state)
}

func (s *inputStep) Init(state *InstallState) tea.Cmd {
	s.err = nil
	s.defaultVal = ""
	if s.def != nil {
		s.defaultVal = s.def(state)
	}

	s.input = textinput.New()
	s.input.CharLimit = 255
	s.input.Width = 40
	switch {
	case s.hint != "":
		s.input.Placeholder = s.hint
	case s.defaultVal != "":
		s.input.Placeholder = s.defaultVal
	case s.isOptional(state):
		s.input.Placeholder = "optional, press enter to skip"
	}
	if s.secret {
		s.input.EchoMode = textinput.EchoPassword
		s.input.EchoCharacter = '•'
	}
	return tea.Batch(s.input.Focus(), textinput.Blink)
}

func (s *inputStep) isOptional(state *InstallState) bool {
	return s.optional != nil && s.optional(state)
}

func (s *inputStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		value := strings.TrimSpace(s.input.Value())
		if value == "" {
			value = s.defaultVal
		}

		switch {
		case value == "" && s.isOptional(state):
			return nil, nil
		case value == "":
			s.err = fmt.Errorf("%s is required", strings.ToLower(s.title))
			return s, nil
		}
		if s.validate != nil {
			if err := s.validate(value); err != nil {
				s.err = err
				return s, nil
			}
		}

		state.EnvVars[s.envKey] = value
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *inputStep) View(*InstallState) string {
	var b strings.Builder
	b.WriteString(s.title + ":\n\n" + s.input.View() + "\n\n")
	if s.err != nil {
		b.WriteString(errorStyle.Render(s.err.Error()) + "\n\n")
	}
	b.WriteString("(press enter to confirm)\n")
	return b.String()
}

// confirmStep shows what will be written, secrets masked.
type confirmStep struct{}

var secretVars = map[string]bool{
	"LLM_API_KEY":      true,
	"API_BEARER_TOKEN": true,
	"TELEGRAM_TOKEN":   true,
}

func (s *confirmStep) Skip(*InstallState) bool   { return false }
func (s *confirmStep) Init(*InstallState) tea.Cmd { return nil }

func (s *confirmStep) Update(msg tea.Msg, _ *InstallState) (Step, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		return nil, nil
	}
	return s, nil
}

func (s *confirmStep) View(state *InstallState) string {
	keys := make([]string, 0, len(state.EnvVars))
	for k := range state.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("These settings will be saved:\n\n")
	for _, k := range keys {
		v := state.EnvVars[k]
		if secretVars[k] && v != "" {
			v = "••••••"
		}
		b.WriteString(itemStyle.Render(fmt.Sprintf("%s=%s", k, v)) + "\n")
	}
	b.WriteString("\n(press enter to save, ctrl+c to quit)\n")
	return b.String()
}
