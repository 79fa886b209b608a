package command

import (
	"github.com/sandevgo/tuskmem/internal/core"
)

func NewCommands(
	sessions SessionResetter,
	history HistoryReader,
	memCfg MemoryConfigurator,
) []core.Command {
	return []core.Command{
		NewClearCommand(sessions),
		NewHistoryCommand(history),
		NewConfigCommand(memCfg),
	}
}
