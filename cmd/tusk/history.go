package main

import (
	"fmt"

	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/service/memory"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <session>",
	Short: "Print the short-term memory of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := bootstrap(cmd.Context())
		defer flushLog()

		appCfg := config.NewAppConfig(ctx)
		mem, err := memory.NewManager(ctx, config.NewMemoryConfig(ctx, appCfg.GetRuntimePath()))
		if err != nil {
			return err
		}

		text := mem.GetFormattedHistory(args[0], 0)
		if text == "" {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "no history for session %q\n", args[0])
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
