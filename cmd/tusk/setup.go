package main

import (
	"context"
	"database/sql"

	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/internal/providers/llm"
	"github.com/sandevgo/tuskmem/internal/providers/tokens"
	"github.com/sandevgo/tuskmem/internal/service/agent"
	"github.com/sandevgo/tuskmem/internal/service/command"
	"github.com/sandevgo/tuskmem/internal/service/memory"
	"github.com/sandevgo/tuskmem/internal/storage/sqlite"
	"github.com/sandevgo/tuskmem/internal/transport/cli"
	"github.com/sandevgo/tuskmem/internal/transport/httpapi"
	"github.com/sandevgo/tuskmem/internal/transport/telegram"
	"github.com/sandevgo/tuskmem/pkg/log"
	"github.com/sandevgo/tuskmem/pkg/srv"
)

// NewServices builds everything `tusk start` runs. Order matters: services
// shut down in reverse, so storage goes first and transports last.
// stop ends the process, the CLI transport calls it on exit.
func NewServices(ctx context.Context, stop context.CancelFunc) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)
	memCfg := config.NewMemoryConfig(ctx, appCfg.GetRuntimePath())

	// 2. Durable log
	db, messagesRepo, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup("sqlite", db.Close))

	// 3. Short-term memory
	mem, err := memory.NewManager(ctx, memCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize short-term memory")
	}

	// 4. Agent runtime
	runtime, err := llm.NewRuntime(ctx, llmCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM runtime")
	}
	counter := tokens.NewCounterOrApprox(ctx, llmCfg.Model)

	// 5. Agent service
	ag := agent.NewService(appCfg, runtime, messagesRepo, mem, counter)
	cmds := command.New(command.NewCommands(ag, mem, mem))

	// 6. Transports
	transports, err := initTransports(ctx, stop, appCfg, ag, mem, cmds)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	services = append(services, transports...)

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, core.MessagesRepository, error) {
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return db, sqlite.NewMessagesRepo(db), nil
}

func initTransports(
	ctx context.Context,
	stop context.CancelFunc,
	cfg *config.AppConfig,
	ag *agent.Service,
	mem *memory.Manager,
	cmds core.CmdRouter,
) ([]srv.Service, error) {
	var services []srv.Service

	if cfg.EnableHTTP {
		serverCfg := config.NewServerConfig(ctx)
		if serverCfg.BearerToken == "" {
			log.FromCtx(ctx).Warn().Msg("API_BEARER_TOKEN is empty, protected endpoints will answer 500")
		}
		services = append(services, httpapi.NewServer(ctx, serverCfg, ag, mem))
	}

	if cfg.EnableTelegram {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, ag, cmds)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	if cfg.EnableCLI {
		rl, err := cli.NewReadLine(cfg, ag, cmds)
		if err != nil {
			return nil, err
		}
		services = append(services, exitOnReturn{Service: rl, stop: stop})
	}

	return services, nil
}

// exitOnReturn stops the process once the wrapped service's Start returns,
// so leaving the interactive chat shuts everything down.
type exitOnReturn struct {
	srv.Service
	stop context.CancelFunc
}

func (e exitOnReturn) Start(ctx context.Context) error {
	defer e.stop()
	return e.Service.Start(ctx)
}
