package core

import "context"

type MessagesRepository interface {
	AddMessage(ctx context.Context, msg Message) (Message, error)
	// GetMessages returns the newest limit messages of a session, oldest first.
	GetMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
}
