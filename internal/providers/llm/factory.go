package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/pkg/log"
)

type providerPreset struct {
	baseURL      string
	extraHeaders map[string]string
}

var presets = map[string]providerPreset{
	"openai":     {baseURL: "https://api.openai.com"},
	"ollama":     {baseURL: "http://localhost:11434"},
	"custom":     {},
	"openrouter": {
		baseURL: "https://openrouter.ai/api",
		extraHeaders: map[string]string{
			"HTTP-Referer": core.TuskRepositoryURL,
			"X-Title":      core.TuskName,
		},
	},
}

// NewRuntime creates the AgentRuntime for the configured provider.
// LLM_BASE_URL overrides the preset URL and is required for "custom".
func NewRuntime(ctx context.Context, cfg *config.LLMConfig) (core.AgentRuntime, error) {
	preset, ok := presets[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	baseURL := preset.baseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("llm provider %s requires LLM_BASE_URL", cfg.Provider)
	}

	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Str("url", baseURL).
		Msg("starting llm runtime")

	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:      baseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Timeout:      cfg.Timeout,
		AuthHeader:   "Authorization",
		AuthPrefix:   "Bearer ",
		ExtraHeaders: preset.extraHeaders,
	}), nil
}
