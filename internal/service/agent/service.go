package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/service/extraction"
	"github.com/sandevgo/tuskmem/internal/service/memory"
	"github.com/sandevgo/tuskmem/pkg/log"
)

var ErrInvalidTurn = errors.New("invalid turn")

type Memory interface {
	StoreMessage(ctx context.Context, sessionID, userID, content, role string, metadata map[string]any) (memory.Item, error)
	GetFormattedHistory(sessionID string, limit int) string
	ClearSession(ctx context.Context, sessionID string) error
	Config() config.MemoryConfig
}

type Turn struct {
	Query     string
	UserID    string
	RequestID string
	SessionID string
}

type Reply struct {
	Success   bool
	RequestID string
	Result    extraction.Result
}

type Service struct {
	historyLimit int
	runtime      core.AgentRuntime
	repo         core.MessagesRepository
	memory       Memory
	tokens       core.TokenCounter
}

func NewService(
	appCfg *config.AppConfig,
	runtime core.AgentRuntime,
	repo core.MessagesRepository,
	mem Memory,
	tokens core.TokenCounter,
) *Service {
	return &Service{
		historyLimit: appCfg.HistoryLimit,
		runtime:      runtime,
		repo:         repo,
		memory:       mem,
		tokens:       tokens,
	}
}

// HandleTurn runs one exchange. Storage failures are answered with an
// unsuccessful Reply and an apology turn in the log, not an error. The
// error return is reserved for malformed turns.
func (s *Service) HandleTurn(ctx context.Context, turn Turn) (Reply, error) {
	if turn.Query == "" || turn.SessionID == "" || turn.UserID == "" {
		return Reply{}, fmt.Errorf("%w: query, session and user are required", ErrInvalidTurn)
	}
	if turn.RequestID == "" {
		turn.RequestID = uuid.NewString()
	}

	logger := log.FromCtx(ctx).With().
		Str("session", turn.SessionID).
		Str("request", turn.RequestID).
		Logger()
	ctx = logger.WithContext(ctx)

	history, err := s.repo.GetMessages(ctx, turn.SessionID, s.historyLimit)
	if err != nil {
		return s.fail(ctx, turn, fmt.Errorf("failed to fetch history: %w", err)), nil
	}
	prefix := s.promptPrefix(turn, history)

	if _, err := s.repo.AddMessage(ctx, core.Message{
		SessionID: turn.SessionID,
		Role:      core.RoleHuman,
		Content:   turn.Query,
	}); err != nil {
		return s.fail(ctx, turn, fmt.Errorf("failed to store query: %w", err)), nil
	}
	s.remember(ctx, turn, turn.Query, core.RoleHuman, nil)

	result := s.run(ctx, buildPrompt(prefix, turn.Query))

	data := map[string]any{
		"request_id": turn.RequestID,
		"confidence": result.Confidence,
		"sentiment":  result.Sentiment,
	}
	if _, err := s.repo.AddMessage(ctx, core.Message{
		SessionID: turn.SessionID,
		Role:      core.RoleAI,
		Content:   result.Response,
		Data:      data,
	}); err != nil {
		return s.fail(ctx, turn, fmt.Errorf("failed to store response: %w", err)), nil
	}
	s.remember(ctx, turn, result.Response, core.RoleAI, data)

	logger.Info().
		Float64("confidence", result.Confidence).
		Str("sentiment", result.Sentiment).
		Msg("turn completed")

	return Reply{Success: true, RequestID: turn.RequestID, Result: result}, nil
}

// promptPrefix prefers the short-term memory rendering when it is enabled
// and has something for the session.
func (s *Service) promptPrefix(turn Turn, history []core.Message) string {
	prefix := RenderConversation(history)

	cfg := s.memory.Config()
	if cfg.ShortTerm.IncludeInPrompt {
		if formatted := s.memory.GetFormattedHistory(turn.SessionID, s.historyLimit); formatted != "" {
			prefix = formatted
		}
	}
	return trimToBudget(prefix, turn.Query, cfg.General.TokenLimit, s.tokens)
}

func (s *Service) run(ctx context.Context, prompt string) extraction.Result {
	logger := log.FromCtx(ctx)
	logger.Debug().Int("prompt_len", len(prompt)).Msg("sending prompt to agent runtime")

	raw, err := s.runtime.Run(ctx, prompt)
	if err != nil {
		logger.Error().Err(err).Msg("agent runtime failed")
		return extraction.Result{
			Response:   core.ErrorResponse,
			Confidence: extraction.DefaultConfidence,
			Sentiment:  extraction.DefaultSentiment,
		}
	}

	logger.Debug().Str("raw", raw).Msg("agent runtime answered")
	return extraction.Extract(ctx, raw)
}

func (s *Service) remember(ctx context.Context, turn Turn, content, role string, data map[string]any) {
	if _, err := s.memory.StoreMessage(ctx, turn.SessionID, turn.UserID, content, role, data); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("role", role).Msg("failed to store turn in short-term memory")
	}
}

func (s *Service) fail(ctx context.Context, turn Turn, cause error) Reply {
	logger := log.FromCtx(ctx)
	logger.Error().Err(cause).Msg("turn failed")

	if _, err := s.repo.AddMessage(ctx, core.Message{
		SessionID: turn.SessionID,
		Role:      core.RoleAI,
		Content:   core.ErrorResponse,
		Data:      map[string]any{"error": cause.Error(), "request_id": turn.RequestID},
	}); err != nil {
		logger.Error().Err(err).Msg("failed to store error turn")
	}

	return Reply{
		Success:   false,
		RequestID: turn.RequestID,
		Result: extraction.Result{
			Response:   core.ErrorResponse,
			Confidence: extraction.DefaultConfidence,
			Sentiment:  extraction.DefaultSentiment,
		},
	}
}

// ResetSession forgets a session in both the durable log and short-term memory.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	return s.memory.ClearSession(ctx, sessionID)
}
