package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sandevgo/tuskmem/internal/service/extraction"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract response, confidence and sentiment from raw agent output",
	Long:  `Reads raw agent output from file, or stdin when no file is given, and prints the extracted triple as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		var (
			raw []byte
			err error
		)
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		out, err := json.MarshalIndent(extraction.Extract(ctx, string(raw)), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
