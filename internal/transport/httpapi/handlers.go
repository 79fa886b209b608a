package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/service/agent"
	"github.com/sandevgo/tuskmem/internal/service/extraction"
	"github.com/sandevgo/tuskmem/internal/service/memory"
	"github.com/sandevgo/tuskmem/pkg/log"
	"github.com/spf13/cast"
)

type Agent interface {
	HandleTurn(ctx context.Context, turn agent.Turn) (agent.Reply, error)
	ResetSession(ctx context.Context, sessionID string) error
}

type Memory interface {
	GetConversationHistory(sessionID string, limit int) []memory.Item
	GetFormattedHistory(sessionID string, limit int) string
	ClearAll(ctx context.Context)
	UpdateConfig(ctx context.Context, section, key string, value any) error
}

type handlers struct {
	agent  Agent
	memory Memory
}

func (h *handlers) info(c *gin.Context) {
	respondOK(c, gin.H{
		"service": core.TuskName,
		"version": core.TuskVersion,
		"endpoints": []string{
			"POST /api/test-extraction",
			"POST /api/agent",
			"GET /api/sessions/:session_id/history",
			"GET /api/sessions/:session_id/formatted",
			"DELETE /api/sessions/:session_id",
			"DELETE /api/memory",
			"PATCH /api/memory/config",
		},
	})
}

type extractionRequest struct {
	Text string `json:"text"`
}

type extractionResponse struct {
	extraction.Result
	RawOutput string `json:"raw_output"`
}

func (h *handlers) testExtraction(c *gin.Context) {
	var req extractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	res := extraction.Extract(c.Request.Context(), req.Text)
	respondOK(c, extractionResponse{Result: res, RawOutput: req.Text})
}

type agentRequest struct {
	Query     string `json:"query" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id" binding:"required"`
}

type agentResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
}

func (h *handlers) runAgent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	reply, err := h.agent.HandleTurn(c.Request.Context(), agent.Turn{
		Query:     req.Query,
		UserID:    req.UserID,
		RequestID: req.RequestID,
		SessionID: req.SessionID,
	})
	if err != nil {
		if errors.Is(err, agent.ErrInvalidTurn) {
			respondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	respondOK(c, agentResponse{Success: reply.Success, RequestID: reply.RequestID})
}

func (h *handlers) sessionHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "bad_request", errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	sessionID := c.Param("session_id")
	items := h.memory.GetConversationHistory(sessionID, limit)
	respondOK(c, gin.H{"session_id": sessionID, "items": items})
}

func (h *handlers) formattedHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	respondOK(c, gin.H{
		"session_id": sessionID,
		"history":    h.memory.GetFormattedHistory(sessionID, 0),
	})
}

func (h *handlers) clearSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.agent.ResetSession(c.Request.Context(), sessionID); err != nil {
		respondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	respondOK(c, gin.H{"success": true})
}

func (h *handlers) clearMemory(c *gin.Context) {
	h.memory.ClearAll(c.Request.Context())
	respondOK(c, gin.H{"success": true})
}

type configRequest struct {
	Section string `json:"section" binding:"required"`
	Key     string `json:"key" binding:"required"`
	Value   any    `json:"value"`
}

func (h *handlers) updateConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	ctx := c.Request.Context()
	if err := h.memory.UpdateConfig(ctx, req.Section, req.Key, req.Value); err != nil {
		if errors.Is(err, config.ErrUnknownSection) ||
			errors.Is(err, config.ErrUnknownKey) ||
			errors.Is(err, config.ErrInvalidValue) {
			respondError(c, http.StatusBadRequest, "invalid_config", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	log.FromCtx(ctx).Info().
		Str("section", req.Section).
		Str("key", req.Key).
		Interface("value", req.Value).
		Msg("memory config updated over http")
	respondOK(c, gin.H{"success": true})
}
