package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/tuskmem/internal/core"
)

type SessionResetter interface {
	ResetSession(ctx context.Context, sessionID string) error
}

type ClearCommand struct {
	sessions SessionResetter
}

func NewClearCommand(sessions SessionResetter) core.Command {
	return &ClearCommand{sessions: sessions}
}

func (c *ClearCommand) Name() string {
	return "clear"
}

func (c *ClearCommand) Description() string {
	return "Forget the current conversation"
}

func (c *ClearCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if err := c.sessions.ResetSession(ctx, sessionID); err != nil {
		return "", fmt.Errorf("failed to clear session: %w", err)
	}
	return done("Conversation cleared"), nil
}
