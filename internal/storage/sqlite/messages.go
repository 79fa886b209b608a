package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/pkg/log"
)

type MessagesRepo struct {
	db *sql.DB
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

func (h *MessagesRepo) AddMessage(ctx context.Context, msg core.Message) (core.Message, error) {
	if msg.SessionID == "" {
		return core.Message{}, fmt.Errorf("message without session id")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	data := "{}"
	if len(msg.Data) > 0 {
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			return core.Message{}, fmt.Errorf("failed to marshal message data: %w", err)
		}
		data = string(raw)
	}

	query := `INSERT INTO messages (session_id, role, content, data, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := h.db.ExecContext(ctx, query, msg.SessionID, msg.Role, msg.Content, data, msg.CreatedAt)
	if err != nil {
		return core.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	if msg.ID, err = res.LastInsertId(); err != nil {
		return core.Message{}, err
	}
	return msg, nil
}

func (h *MessagesRepo) GetMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	if limit <= 0 {
		limit = -1
	}

	// Fetch the LAST 'limit' messages by ordering DESC
	query := `SELECT id, session_id, role, content, data, created_at FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := h.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]core.Message, 0)
	for rows.Next() {
		var msg core.Message
		var data sql.NullString

		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &data, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if data.Valid && data.String != "" && data.String != "{}" {
			if err := json.Unmarshal([]byte(data.String), &msg.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message data: %w", err)
			}
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest first from the query, callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(messages)).Str("session", sessionID).Msg("loaded history messages")
	return messages, nil
}

func (h *MessagesRepo) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	return nil
}
