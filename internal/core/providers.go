package core

import "context"

// AgentRuntime answers a fully rendered prompt with the model's raw text.
type AgentRuntime interface {
	Run(ctx context.Context, prompt string) (string, error)
}

type TokenCounter interface {
	Count(text string) int
}
