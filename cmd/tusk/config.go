package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/service/memory"
	"github.com/sandevgo/tuskmem/pkg/env"
	"github.com/sandevgo/tuskmem/pkg/log"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or change memory configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <section> <key>",
	Short: "Print one memory setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := bootstrap(cmd.Context())
		defer flushLog()

		cfg := config.NewMemoryConfig(ctx, config.GetRuntimePath())
		value, err := cfg.Get(args[0], args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <section> <key> <value>",
	Short: "Change one memory setting and save it to the runtime .env",
	Long: `Applies the value to short-term memory right away (a new short_term max_size
resizes the saved snapshot) and records it in the runtime .env for the next start.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := bootstrap(cmd.Context())
		defer flushLog()

		section, key, value := args[0], args[1], args[2]

		mem, err := memory.NewManager(ctx, config.NewMemoryConfig(ctx, config.GetRuntimePath()))
		if err != nil {
			return err
		}
		if err := mem.UpdateConfig(ctx, section, key, value); err != nil {
			return err
		}

		stored, err := mem.Config().Get(section, key)
		if err != nil {
			return err
		}
		if err := saveEnvValue(ctx, envPath(), section, key, cast.ToString(stored)); err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s.%s = %v\n", section, key, stored)
		return err
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the effective memory configuration as .env lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := bootstrap(cmd.Context())
		defer flushLog()

		cfg := config.NewMemoryConfig(ctx, config.GetRuntimePath())
		values, err := env.Marshal(&cfg)
		if err != nil {
			return err
		}
		text, err := godotenv.Marshal(values)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

// saveEnvValue rewrites envFile with the variable behind section.key set to value.
func saveEnvValue(ctx context.Context, envFile, section, key, value string) error {
	name, err := config.EnvName(section, key)
	if err != nil {
		return err
	}

	if err := mergeEnvFile(envFile, map[string]string{name: value}); err != nil {
		return err
	}

	log.FromCtx(ctx).Debug().Str("path", envFile).Str("var", name).Msg("saved setting to .env")
	return nil
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configEnvCmd)
	rootCmd.AddCommand(configCmd)
}
