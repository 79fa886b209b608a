package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/service/agent"
	"github.com/sandevgo/tuskmem/pkg/conv"
	"github.com/sandevgo/tuskmem/pkg/log"
)

const (
	SessionID = "cli"
	userID    = "local"
)

type Agent interface {
	HandleTurn(ctx context.Context, turn agent.Turn) (agent.Reply, error)
}

// ReadLine is an interactive chat on the terminal. Lines starting with "/"
// go to the command router.
type ReadLine struct {
	agent Agent
	cmds  core.CmdRouter
	rl    *readline.Instance
}

func NewReadLine(cfg *config.AppConfig, agent Agent, cmds core.CmdRouter) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		agent: agent,
		cmds:  cmds,
		rl:    rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("ReadLine chat started. Type 'exit' to quit.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		fmt.Fprintln(r.rl.Stdout(), r.respond(ctx, line))
	}
}

// respond answers one input line.
func (r *ReadLine) respond(ctx context.Context, line string) string {
	if out, ok := r.cmds.Execute(ctx, SessionID, line); ok {
		return out
	}

	reply, err := r.agent.HandleTurn(ctx, agent.Turn{
		Query:     line,
		UserID:    userID,
		RequestID: uuid.NewString(),
		SessionID: SessionID,
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("agent turn failed")
		return fmt.Sprintf("Error: %v", err)
	}
	if !reply.Success {
		return core.ErrorResponse
	}

	return fmt.Sprintf("%s\n\033[38;5;240m[confidence %.2f, %s]\033[0m",
		conv.MarkdownToText(reply.Result.Response), reply.Result.Confidence, reply.Result.Sentiment)
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
