package installer

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	quit  = tea.KeyMsg{Type: tea.KeyCtrlC}
)

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func drive(t *testing.T, msgs ...tea.Msg) model {
	t.Helper()
	var m tea.Model = newModel(defaultSteps())
	m.Init()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	out, ok := m.(model)
	require.True(t, ok)
	return out
}

func TestWizard_OpenAIWithTelegram(t *testing.T) {
	m := drive(t,
		enter,                   // OpenAI
		typed("sk-test"), enter, // api key
		enter,                   // default model
		enter,                   // generated bearer token
		down, enter,             // HTTP API and Telegram
		typed("123:abc"), enter, // telegram token
		typed("42"), enter, // owner
		enter, // persistence on
		enter, // confirm
	)

	require.True(t, m.done())
	vars := m.state.EnvVars
	assert.Equal(t, "openai", vars["LLM_PROVIDER"])
	assert.NotContains(t, vars, "LLM_BASE_URL")
	assert.Equal(t, "sk-test", vars["LLM_API_KEY"])
	assert.Equal(t, "gpt-3.5-turbo", vars["LLM_MODEL"])
	_, err := uuid.Parse(vars["API_BEARER_TOKEN"])
	assert.NoError(t, err)
	assert.Equal(t, "true", vars["ENABLE_HTTP"])
	assert.Equal(t, "true", vars["ENABLE_TELEGRAM"])
	assert.Equal(t, "false", vars["ENABLE_CLI"])
	assert.Equal(t, "123:abc", vars["TELEGRAM_TOKEN"])
	assert.Equal(t, "42", vars["TELEGRAM_OWNER_ID"])
	assert.Equal(t, "true", vars["MEMORY_PERSISTENCE_ENABLED"])
}

func TestWizard_OllamaSkipsOptionalKeyAndTelegram(t *testing.T) {
	m := drive(t,
		down, down, enter, // Ollama
		enter,            // no api key
		typed("qwen3"), enter,
		typed("tok"), enter,
		down, down, enter, // terminal chat
		down, enter, // no persistence
		enter,
	)

	require.True(t, m.done())
	vars := m.state.EnvVars
	assert.Equal(t, "ollama", vars["LLM_PROVIDER"])
	assert.NotContains(t, vars, "LLM_API_KEY")
	assert.Equal(t, "qwen3", vars["LLM_MODEL"])
	assert.Equal(t, "tok", vars["API_BEARER_TOKEN"])
	assert.Equal(t, "true", vars["ENABLE_CLI"])
	assert.NotContains(t, vars, "TELEGRAM_TOKEN")
	assert.Equal(t, "false", vars["MEMORY_PERSISTENCE_ENABLED"])
}

func TestWizard_CustomRequiresBaseURL(t *testing.T) {
	m := drive(t,
		down, down, down, enter, // custom
		enter, // empty base url is rejected
	)

	require.False(t, m.done())
	step, ok := m.steps[m.current].(*inputStep)
	require.True(t, ok)
	assert.Equal(t, "LLM_BASE_URL", step.envKey)
	assert.Error(t, step.err)
	assert.Contains(t, m.View(), "required")

	var next tea.Model = m
	next, _ = next.Update(typed("http://llm.local"))
	next, _ = next.Update(enter)
	assert.Equal(t, "http://llm.local", next.(model).state.EnvVars["LLM_BASE_URL"])
}

func TestWizard_OwnerMustBeNumeric(t *testing.T) {
	m := drive(t,
		enter,
		typed("k"), enter,
		enter,
		enter,
		down, enter,
		typed("t"), enter,
		typed("me"), enter,
	)

	step, ok := m.steps[m.current].(*inputStep)
	require.True(t, ok)
	assert.Equal(t, "TELEGRAM_OWNER_ID", step.envKey)
	assert.Error(t, step.err)
	assert.NotContains(t, m.state.EnvVars, "TELEGRAM_OWNER_ID")
}

func TestWizard_Cancel(t *testing.T) {
	m := drive(t, enter, quit)
	assert.True(t, m.quitting)
	assert.Equal(t, "Installation cancelled.\n", m.View())
}

func TestConfirmStep_MasksSecrets(t *testing.T) {
	state := NewInstallState()
	state.EnvVars["LLM_API_KEY"] = "sk-secret"
	state.EnvVars["LLM_MODEL"] = "gpt"

	view := (&confirmStep{}).View(state)
	assert.NotContains(t, view, "sk-secret")
	assert.Contains(t, view, "LLM_MODEL=gpt")
}
