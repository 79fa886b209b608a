package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/tuskmem/pkg/log"
)

const DefaultSystemPrompt = "You are a helpful, precise assistant with excellent conversation memory. " +
	"Follow these guidelines:\n" +
	"1. Provide accurate, factual responses based on verified information.\n" +
	"2. Maintain context across the conversation and refer to previous exchanges when relevant.\n" +
	"3. When uncertain, clearly indicate your confidence level rather than guessing.\n" +
	"4. Present information in a structured, easy-to-understand format.\n" +
	"5. Do not reference your own limitations or nature as an AI.\n\n" +
	"Answer with a single JSON object of the form " +
	`{"response": "<your answer>", "confidence": <number between 0 and 1>, "sentiment": "positive|neutral|negative"}.`

type LLMConfig struct {
	// One of openai, openrouter, ollama, custom.
	Provider     string        `env:"LLM_PROVIDER" envDefault:"openai"`
	BaseURL      string        `env:"LLM_BASE_URL"`
	APIKey       string        `env:"LLM_API_KEY"`
	Model        string        `env:"LLM_MODEL" envDefault:"gpt-3.5-turbo"`
	SystemPrompt string        `env:"LLM_SYSTEM_PROMPT"`
	Timeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	return c
}
