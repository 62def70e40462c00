package main

import (
	"errors"
	"time"

	"summarygen/internal/bot"

	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Serve the CSV summarizer as a Telegram bot",
	Long: `Bot starts a Telegram bot (token from TOKEN) that takes CSV uploads,
shows a preview, processes the table on request and replies with the output
file and the summaries. ALLOWED_USERS restricts who may use it.

Users can set their own OpenAI key per chat with /key; OPENAI_API_KEY is the
fallback. Keys are held in memory only.`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	start := time.Now()

	if cfg.Token == "" {
		log.ErrorContext(ctx, "TOKEN is required",
			"envVar", "TOKEN")

		return errors.New("TOKEN is required")
	}

	prompts, err := loadTagPrompts(ctx, cfg, log)
	if err != nil {
		return err
	}

	if cfg.OpenAIAPIKey == "" {
		log.WarnContext(ctx, "OPENAI_API_KEY is missing so users must set their own key",
			"envVar", "OPENAI_API_KEY")
	}

	botInst, err := bot.New(bot.Options{
		Token:        cfg.Token,
		AllowedUsers: cfg.AllowedUsers,
		EnvAPIKey:    cfg.OpenAIAPIKey,
		TagPrompts:   prompts,
		NewProcessor: processorFactory(cfg, prompts, log),
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return err
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	log.InfoContext(ctx, "Bot is started",
		"updateTimeoutSeconds", bot.BotUpdateTimeout)

	botInst.Start(ctx)

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	botInst.Stop()
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())

	return nil
}
