package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"summarygen/internal/config"
	"summarygen/internal/markdown"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.Message.Chat == nil {
		return b.withEmptyCallbackAnswer(callback, func() error { return nil })
	}

	return b.withSpinner(ctx, callback.Message.Chat.ID, func() error {
		switch strings.TrimSpace(callback.Data) {
		case processCallbackData:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleProcessQuery(ctx, callback.Message)
			})
		case cancelCallbackData:
			return b.withEmptyCallbackAnswer(callback, func() error {
				b.removeKeyboard(ctx, callback.Message)
				return b.handleCancelCommand(callback.Message.Chat.ID)
			})
		}

		return nil
	})
}

func (b *Bot) handleProcessQuery(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	apiKey, err := config.ResolveAPIKey(b.sessions.apiKey(chatID), b.envAPIKey)
	if err != nil {
		// The upload stays pending, so the user can set a key and retry.
		return b.sendMessageWithKeyboard(
			chatID,
			"🔑 "+markdown.EscapeV2(err.Error())+"\\.\n\nUse `/key <your key>` and press *Process* again\\.",
			nil,
		)
	}

	upload, err := b.sessions.startBatch(chatID)
	switch {
	case errors.Is(err, errBatchRunning):
		return b.sendMessageWithKeyboard(chatID, "⏳ A file is being processed already, please wait\\.", nil)
	case errors.Is(err, errNoUpload):
		return b.sendMessageWithKeyboard(chatID, "✖️ Upload a CSV file first\\.", nil)
	case err != nil:
		return fmt.Errorf("start batch: %w", err)
	}

	processor, err := b.newProcessor(apiKey)
	if err != nil {
		b.sessions.finishBatch(chatID)

		return errors.Join(
			fmt.Errorf("create processor: %w", err),
			b.sendMessageWithKeyboard(chatID, "❌ "+markdown.EscapeV2(err.Error()), nil),
		)
	}

	b.removeKeyboard(ctx, message)

	b.batches.Go(func() {
		defer b.sessions.finishBatch(chatID)

		b.runBatch(chatID, upload, processor)
	})

	return nil
}

func (b *Bot) removeKeyboard(ctx context.Context, message *tgbotapi.Message) {
	edit := tgbotapi.NewEditMessageReplyMarkup(
		message.Chat.ID,
		message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)

	if _, err := b.rateLimiter.Request(edit); err != nil {
		b.log.WarnContext(ctx, "Failed to remove keyboard",
			"error", err,
			"chatID", message.Chat.ID,
			"messageID", message.MessageID)
	}
}

func (b *Bot) withEmptyCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		errs = append(errs, b.errorCallbackAnswer(callback, fmt.Errorf("send request: %w", err)))
	}

	err := fn()
	if err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	err error,
) error {
	if _, sendErr := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "❌ Failed.")); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send request: %w", sendErr))
	}
	return err
}
