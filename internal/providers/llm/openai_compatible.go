package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/tuskmem/pkg/log"
	"github.com/sandevgo/tuskmem/pkg/retry"
)

const chatCompletionsPath = "/v1/chat/completions"

// OpenAICompatible sends each prompt as a single user turn after the system
// prompt and returns the assistant text untouched.
type OpenAICompatible struct {
	baseProvider
	systemPrompt string
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
	retrier      *retry.Retrier
}

type OpenAICompatibleConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
	Retry        *retry.Config
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.NewDefaultConfig()
	}
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout),
		systemPrompt: cfg.SystemPrompt,
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
		retrier:      retry.NewRetrier(retryCfg),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// statusError keeps the HTTP status for retry decisions.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (o *OpenAICompatible) Run(ctx context.Context, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if o.systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: o.systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	payload := map[string]any{
		"model":    o.model,
		"messages": messages,
	}

	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}

	logger := log.FromCtx(ctx)
	attempt := 0

	var content string
	err := o.retrier.Do(ctx, func() error {
		attempt++
		resp, err := o.doRequest(ctx, http.MethodPost, chatCompletionsPath, payload, headers)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			logger.Warn().Err(err).Int("attempt", attempt).Msg("llm request failed")
			return err
		}
		defer resp.Body.Close()

		content, err = parseOpenAIResponse(resp)
		if err == nil {
			return nil
		}

		var se *statusError
		if errors.As(err, &se) && !retryable(se.code) {
			return retry.Permanent(err)
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("llm request failed")
		return err
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func parseOpenAIResponse(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}

	var result struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", retry.Permanent(fmt.Errorf("decode: %w", err))
	}
	if len(result.Choices) == 0 {
		return "", retry.Permanent(fmt.Errorf("empty choices: %s", string(data)))
	}
	return result.Choices[0].Message.Content, nil
}
