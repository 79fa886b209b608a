package extraction

import (
	"context"

	"github.com/sandevgo/tuskmem/pkg/log"
)

type matchFunc func(text string) (Result, bool, error)

type matcher struct {
	name  string
	match matchFunc
}

// chain is tried in order, the first non-empty response wins.
var chain = []matcher{
	{name: "agent_run_result_single", match: matchAgentRunSingle},
	{name: "agent_run_result_double", match: matchAgentRunDouble},
	{name: "response_field", match: matchResponseField},
	{name: "json_fields", match: matchJSONFields},
	{name: "agent_output", match: matchAgentOutput},
	{name: "json_object", match: matchJSONObject},
	{name: "data_content", match: matchDataContent},
	{name: "quoted_run", match: matchQuotedRun},
	{name: "prose", match: matchProse},
}

// Extract never fails. Fields it cannot find keep their defaults.
func Extract(ctx context.Context, raw string) Result {
	logger := log.FromCtx(ctx)

	for _, m := range chain {
		res, ok, err := m.match(raw)
		if err != nil {
			logger.Debug().Err(err).Str("matcher", m.name).Msg("extraction matcher failed")
			continue
		}
		if ok && res.Response != "" {
			logger.Debug().
				Str("matcher", m.name).
				Float64("confidence", res.Confidence).
				Str("sentiment", res.Sentiment).
				Msg("extracted agent output")
			return res
		}
	}

	logger.Debug().Int("len", len(raw)).Msg("nothing extracted, using defaults")
	return Default()
}
