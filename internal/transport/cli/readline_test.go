package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/service/agent"
	"github.com/sandevgo/tuskmem/internal/service/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	turns []agent.Turn
	reply agent.Reply
	err   error
}

func (f *fakeAgent) HandleTurn(_ context.Context, turn agent.Turn) (agent.Reply, error) {
	f.turns = append(f.turns, turn)
	return f.reply, f.err
}

type fakeRouter struct{}

func (fakeRouter) Execute(_ context.Context, sessionID, input string) (string, bool) {
	if input == "/ping" {
		return "pong " + sessionID, true
	}
	return "", false
}

func (fakeRouter) ListCommands() []core.Command { return nil }

func TestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("command", func(t *testing.T) {
		ag := &fakeAgent{}
		r := &ReadLine{agent: ag, cmds: fakeRouter{}}
		assert.Equal(t, "pong cli", r.respond(ctx, "/ping"))
		assert.Empty(t, ag.turns)
	})

	t.Run("turn", func(t *testing.T) {
		ag := &fakeAgent{reply: agent.Reply{
			Success: true,
			Result:  extraction.Result{Response: "Paris.", Confidence: 0.9, Sentiment: "positive"},
		}}
		r := &ReadLine{agent: ag, cmds: fakeRouter{}}

		out := r.respond(ctx, "capital?")
		assert.Contains(t, out, "Paris.")
		assert.Contains(t, out, "confidence 0.90, positive")
		require.Len(t, ag.turns, 1)
		assert.Equal(t, SessionID, ag.turns[0].SessionID)
		assert.NotEmpty(t, ag.turns[0].RequestID)
	})

	t.Run("failed turn", func(t *testing.T) {
		r := &ReadLine{agent: &fakeAgent{reply: agent.Reply{Success: false}}, cmds: fakeRouter{}}
		assert.Equal(t, core.ErrorResponse, r.respond(ctx, "hi"))
	})

	t.Run("error", func(t *testing.T) {
		r := &ReadLine{agent: &fakeAgent{err: errors.New("bad")}, cmds: fakeRouter{}}
		assert.Equal(t, "Error: bad", r.respond(ctx, "hi"))
	})
}
