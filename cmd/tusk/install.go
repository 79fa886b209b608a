package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/internal/service/installer"
	"github.com/sandevgo/tuskmem/pkg/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:          "install",
	Short:        "Create the runtime directory and its .env interactively",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		logger := log.FromCtx(ctx)
		runtimePath := config.GetRuntimePath()
		if err := os.MkdirAll(runtimePath, 0o755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}

		vars, err := installer.RunWizard()
		if err != nil {
			return err
		}

		envFile := envPath()
		if err := mergeEnvFile(envFile, vars); err != nil {
			return err
		}

		logger.Info().Str("path", envFile).Msg("saved configuration")
		logger.Info().Msg("Installation complete! You can now run 'tusk start'.")
		return nil
	},
}

// mergeEnvFile writes vars over whatever envFile already holds.
func mergeEnvFile(envFile string, vars map[string]string) error {
	existing, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		existing = map[string]string{}
	}
	for k, v := range vars {
		existing[k] = v
	}
	if err := godotenv.Write(existing, envFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", envFile, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(installCmd)
}
