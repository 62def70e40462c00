package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendSpinnerInterval = 3 * time.Second

func (b *Bot) sendChatAction(ctx context.Context, chatID int64, action string) {
	config := tgbotapi.NewChatAction(chatID, action)
	_, err := b.rateLimiter.Request(config)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to send chat action",
			"error", err,
			"action", action)
	}
}

// withSpinner repeats a chat action until fn returns.
func (b *Bot) withSpinner(ctx context.Context, chatID int64, fn func() error) error {
	return b.withChatAction(ctx, chatID, tgbotapi.ChatTyping, fn)
}

func (b *Bot) withChatAction(
	ctx context.Context,
	chatID int64,
	action string,
	fn func() error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		b.sendChatAction(ctx, chatID, action)

		t := time.NewTicker(sendSpinnerInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.sendChatAction(ctx, chatID, action)
			}
		}
	}()

	return fn()
}
