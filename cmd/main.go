package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"summarygen/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg config.Config
	log = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "summarygen",
	Short: "Add one-line markdown summaries to CSV tables of links",
	Long: `summarygen reads a CSV table with Description and URL columns, asks an
OpenAI model for a one-line markdown summary of every row and writes the
table back with a Formatted column.

Use "process" for a local file or "bot" to serve the same flow over Telegram.
Configuration comes from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.LoadDotEnv()
		if err != nil {
			return err
		}

		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// stdout is reserved for summaries.
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		slog.SetDefault(log)

		log.DebugContext(cmd.Context(), "Config is loaded",
			"dotEnv", loaded,
			"model", cfg.OpenAIModel,
			"concurrency", cfg.Concurrency,
			"maxRetries", cfg.MaxRetries)

		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
