// Package extraction recovers a structured answer from the agent runtime's
// free-form output.
package extraction

import "github.com/sandevgo/tuskmem/internal/core"

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"

	DefaultConfidence = 0.5
	DefaultSentiment  = SentimentNeutral
)

// Result is what Extract found. Values are reported as written, they are
// neither validated nor clamped.
type Result struct {
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
	Sentiment  string  `json:"sentiment"`
}

func Default() Result {
	return Result{
		Response:   core.DefaultResponse,
		Confidence: DefaultConfidence,
		Sentiment:  DefaultSentiment,
	}
}
