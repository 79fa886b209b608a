package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/service/agent"
	"github.com/sandevgo/tuskmem/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

type Agent interface {
	HandleTurn(ctx context.Context, turn agent.Turn) (agent.Reply, error)
}

type Bot struct {
	bot     *tele.Bot
	agent   Agent
	cmds    core.CmdRouter
	sender  *sender
	ownerID int64
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	agent Agent,
	cmds core.CmdRouter,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		agent:   agent,
		cmds:    cmds,
		sender:  newSender(b),
		ownerID: cfg.OwnerID,
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// owner only, everyone else is ignored
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != bot.ownerID {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func sessionID(chatID int64) string {
	return fmt.Sprintf("telegram-%d", chatID)
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	session := sessionID(c.Chat().ID)
	logger := log.FromCtx(ctx).With().Str("session", session).Logger()
	ctx = logger.WithContext(ctx)

	if out, ok := b.cmds.Execute(ctx, session, c.Text()); ok {
		return b.sender.sendMarkdown(ctx, c.Chat(), out)
	}

	_ = c.Notify(tele.Typing)

	reply, err := b.agent.HandleTurn(ctx, agent.Turn{
		Query:     c.Text(),
		UserID:    strconv.FormatInt(c.Sender().ID, 10),
		RequestID: uuid.NewString(),
		SessionID: session,
	})
	if err != nil {
		logger.Error().Err(err).Msg("agent turn failed")
		return c.Send(core.ErrorResponse)
	}

	return b.sender.sendMarkdown(ctx, c.Chat(), replyText(reply))
}

// replyText picks what the chat sees for a finished turn.
func replyText(reply agent.Reply) string {
	if !reply.Success || reply.Result.Response == "" {
		return core.ErrorResponse
	}
	return reply.Result.Response
}
