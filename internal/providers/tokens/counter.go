// Package tokens measures prompt text against the configured token budget.
package tokens

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/pkg/log"
)

const defaultEncoding = "cl100k_base"

var (
	encodings   = map[string]*tiktoken.Tiktoken{}
	encodingsMu sync.Mutex
)

// Counter counts tokens with a tiktoken encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

func getEncoding(name string) (*tiktoken.Tiktoken, error) {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	if enc, ok := encodings[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	encodings[name] = enc
	return enc, nil
}

// NewCounter picks the encoding for model, cl100k_base when the model is unknown.
func NewCounter(model string) (*Counter, error) {
	name := defaultEncoding
	if enc, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		name = enc
	}
	enc, err := getEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, err)
	}
	return &Counter{enc: enc}, nil
}

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Approx assumes four bytes per token, rounded up.
type Approx struct{}

func (Approx) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// NewCounterOrApprox never fails. Encodings are fetched on first use, an
// offline host gets the approximation.
func NewCounterOrApprox(ctx context.Context, model string) core.TokenCounter {
	c, err := NewCounter(model)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("tiktoken unavailable, approximating token counts")
		return Approx{}
	}
	return c
}
