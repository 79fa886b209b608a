package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	names := make([]string, len(chain))
	for i, m := range chain {
		names[i] = m.name
	}
	assert.Equal(t, []string{
		"agent_run_result_single",
		"agent_run_result_double",
		"response_field",
		"json_fields",
		"agent_output",
		"json_object",
		"data_content",
		"quoted_run",
		"prose",
	}, names)
}

func TestMatchers(t *testing.T) {
	tests := []struct {
		name   string
		match  matchFunc
		text   string
		wantOK bool
		want   Result
	}{
		{
			name:   "single rejects double quotes",
			match:  matchAgentRunSingle,
			text:   `AgentRunResult(data=AgentOutput(response="x", confidence=0.1, sentiment='neutral'))`,
			wantOK: false,
		},
		{
			name:   "response field needs confidence boundary",
			match:  matchResponseField,
			text:   `response='alone'`,
			wantOK: false,
		},
		{
			name:   "response field defaults",
			match:  matchResponseField,
			text:   `response='hello', confidence=abc`,
			wantOK: true,
			want:   Result{"hello", 0.5, "neutral"},
		},
		{
			name:   "json fields across newlines",
			match:  matchJSONFields,
			text:   "{\n  \"response\"\n  :\n  \"spread out\",\n  \"confidence\": 0.35\n}",
			wantOK: true,
			want:   Result{"spread out", 0.35, "neutral"},
		},
		{
			name:   "agent output reordered",
			match:  matchAgentOutput,
			text:   `AgentOutput(confidence=0.4, response="Reordered fields")`,
			wantOK: true,
			want:   Result{"Reordered fields", 0.4, "neutral"},
		},
		{
			name:   "agent output without response",
			match:  matchAgentOutput,
			text:   `AgentOutput(confidence=0.4)`,
			wantOK: false,
		},
		{
			name:   "json object in noise",
			match:  matchJSONObject,
			text:   `noise {"response": "x", "confidence": 0.7} trailing`,
			wantOK: true,
			want:   Result{"x", 0.7, "neutral"},
		},
		{
			name:   "json object without response",
			match:  matchJSONObject,
			text:   `{"answer": "x"}`,
			wantOK: false,
		},
		{
			name:   "json object string confidence ignored",
			match:  matchJSONObject,
			text:   `{"response": "x", "confidence": "high", "sentiment": "negative"}`,
			wantOK: true,
			want:   Result{"x", 0.5, "negative"},
		},
		{
			name:   "not json",
			match:  matchJSONObject,
			text:   `{response: x}`,
			wantOK: false,
		},
		{
			name:   "data content strips prefix and tail",
			match:  matchDataContent,
			text:   `data=AgentOutput(response="Partial answer here", confidence=0.2)`,
			wantOK: true,
			want:   Result{"Partial answer here", 0.5, "neutral"},
		},
		{
			name:   "data content too short",
			match:  matchDataContent,
			text:   `data=AgentOutput(short)`,
			wantOK: false,
		},
		{
			name:   "quoted run too short",
			match:  matchQuotedRun,
			text:   `'nineteen characters'`,
			wantOK: false,
		},
		{
			name:   "quoted run first of several",
			match:  matchQuotedRun,
			text:   `"first quoted answer here" and "second quoted answer here"`,
			wantOK: true,
			want:   Result{"first quoted answer here", 0.5, "neutral"},
		},
		{
			name:   "prose needs terminal punctuation",
			match:  matchProse,
			text:   "no punctuation in this line",
			wantOK: false,
		},
		{
			name:   "prose rejects errors in any case",
			match:  matchProse,
			text:   "Internal ERROR happened.",
			wantOK: false,
		},
		{
			name:   "prose skips empty json response",
			match:  matchProse,
			text:   `Here you go. {"response": "", "confidence": 0.9}`,
			wantOK: false,
		},
		{
			name:   "prose skips empty response field",
			match:  matchProse,
			text:   `Done. response='', confidence=0.4`,
			wantOK: false,
		},
		{
			name:   "prose question",
			match:  matchProse,
			text:   "  Would you like to know more?  ",
			wantOK: true,
			want:   Result{"Would you like to know more?", 0.5, "neutral"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.match(tt.text)
			require.NoError(t, err)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMatchAgentRun_BadConfidence(t *testing.T) {
	_, ok, err := matchAgentRunSingle("AgentRunResult(data=AgentOutput(response='x', confidence=., sentiment='neutral'))")
	require.Error(t, err)
	assert.False(t, ok)
}
