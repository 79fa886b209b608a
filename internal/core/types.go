package core

import "time"

const (
	TuskName          = "TuskMem"
	TuskUserAgent     = "TuskMem-Agent/0.1"
	TuskRepositoryURL = "https://github.com/sandevgo/tuskmem"
	TuskVersion       = "0.1.0"
)

// Roles of a conversation turn as stored in the durable log and in memory.
const (
	RoleHuman  = "human"
	RoleAI     = "ai"
	RoleSystem = "system"
)

const (
	DefaultResponse = "I apologize, but I'm having trouble providing a response at the moment."
	ErrorResponse   = "I apologize, but I encountered an error processing your request."
)

type Message struct {
	ID        int64          `json:"id,omitempty"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleHuman, RoleAI, RoleSystem:
		return true
	}
	return false
}
