package command

import (
	"context"

	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/core"
)

type MemoryConfigurator interface {
	Config() config.MemoryConfig
	UpdateConfig(ctx context.Context, section, key string, value any) error
}

// ConfigCommand shows the memory configuration or changes one key at runtime.
type ConfigCommand struct {
	memory MemoryConfigurator
}

func NewConfigCommand(memory MemoryConfigurator) core.Command {
	return &ConfigCommand{memory: memory}
}

func (c *ConfigCommand) Name() string {
	return "config"
}

func (c *ConfigCommand) Description() string {
	return "Show or change memory configuration"
}

func (c *ConfigCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	switch len(args) {
	case 0:
		return c.show(), nil
	case 3:
		if err := c.memory.UpdateConfig(ctx, args[0], args[1], args[2]); err != nil {
			return "", err
		}
		return done("%s.%s set to `%s`", args[0], args[1], args[2]), nil
	default:
		return newReply("Memory configuration").usage(
			"/config [section] [key] [value]",
			"/config short_term max_size 20",
			"/config general token_limit 2000",
		).String(), nil
	}
}

func (c *ConfigCommand) show() string {
	cfg := c.memory.Config()

	r := newReply("Memory configuration")
	for _, section := range config.Sections() {
		r.section(section)
		keys, _ := config.Keys(section)
		for _, key := range keys {
			if value, err := cfg.Get(section, key); err == nil {
				r.field(key, value)
			}
		}
	}
	return r.String()
}
