package command

import (
	"context"
	"strings"

	"github.com/sandevgo/tuskmem/internal/core"
)

type HistoryReader interface {
	GetFormattedHistory(sessionID string, limit int) string
}

type HistoryCommand struct {
	history HistoryReader
}

func NewHistoryCommand(history HistoryReader) core.Command {
	return &HistoryCommand{history: history}
}

func (c *HistoryCommand) Name() string {
	return "history"
}

func (c *HistoryCommand) Description() string {
	return "Show what short-term memory holds for this conversation"
}

func (c *HistoryCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	text := strings.TrimSpace(c.history.GetFormattedHistory(sessionID, 0))
	r := newReply("Short-term memory")
	if text == "" {
		return r.field("status", "empty").String(), nil
	}
	return r.text(text).String(), nil
}
