package agent

import (
	"strings"

	"github.com/sandevgo/tuskmem/internal/core"
)

const turnSeparator = "\n\n"

// RenderConversation formats durable history the way the model sees it:
// ai turns as "Assistant:", everything else as "User:".
func RenderConversation(history []core.Message) string {
	var sb strings.Builder
	for _, msg := range history {
		role := "User"
		if msg.Role == core.RoleAI {
			role = "Assistant"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString(turnSeparator)
	}
	return sb.String()
}

func buildPrompt(prefix, query string) string {
	return prefix + "User: " + query
}

// trimToBudget drops the oldest rendered turns until prefix plus the new
// query fits in limit tokens. limit <= 0 disables trimming.
func trimToBudget(prefix, query string, limit int, counter core.TokenCounter) string {
	if limit <= 0 || counter == nil || prefix == "" {
		return prefix
	}

	for prefix != "" && counter.Count(buildPrompt(prefix, query)) > limit {
		idx := strings.Index(prefix, turnSeparator)
		if idx < 0 {
			return ""
		}
		prefix = prefix[idx+len(turnSeparator):]
	}
	return prefix
}
