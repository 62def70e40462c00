package bot

import (
	"context"
	"fmt"
	"strings"

	"summarygen/internal/markdown"
	"summarygen/internal/table"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = `🤖 *Welcome to Summarygen\!*

Send me a CSV file and I will add a *Formatted* column with a one\-line markdown summary for every row\.

– The file must have *Description* and *URL* columns \(exact names\)
– An optional *AI Summary Tag* column picks a custom prompt, see /tags
– Set your OpenAI API key with /key, forget it with /forgetkey
– Drop an uploaded file with /cancel

Example file:`

const sampleCSV = `Description,URL
"A tool that converts CSV files to JSON",https://example.com/csv2json`

func (b *Bot) handleStartCommand(chatID int64) error {
	var text strings.Builder

	text.WriteString(welcomeText)
	text.WriteString("\n")
	text.WriteString(markdown.CodeBlock("csv", sampleCSV))
	text.WriteString("\n\n")
	text.WriteString(b.keyStatusText(chatID))

	return b.sendMessageWithKeyboard(chatID, text.String(), nil)
}

func (b *Bot) keyStatusText(chatID int64) string {
	switch {
	case b.sessions.apiKey(chatID) != "":
		return "🔑 Your own API key is set for this chat\\."
	case b.envAPIKey != "":
		return "🔑 The server API key will be used\\."
	default:
		return "⚠️ No API key is available yet\\. Use `/key <your key>` first\\."
	}
}

func (b *Bot) handleKeyCommand(
	ctx context.Context,
	key string,
	message *tgbotapi.Message,
) error {
	chatID := message.Chat.ID

	if key == "" {
		return b.sendMessageWithKeyboard(chatID, "Usage: `/key <your OpenAI API key>`", nil)
	}

	// The message carries the secret, so it should not stay in the chat.
	if _, err := b.rateLimiter.Request(tgbotapi.NewDeleteMessage(chatID, message.MessageID)); err != nil {
		b.log.WarnContext(ctx, "Failed to delete message with API key",
			"error", err,
			"chatID", chatID,
			"messageID", message.MessageID)
	}

	b.sessions.setAPIKey(chatID, key)

	return b.sendMessageWithKeyboard(chatID, "✅ API key is saved for this chat until the bot restarts\\.", nil)
}

func (b *Bot) handleForgetKeyCommand(chatID int64) error {
	if !b.sessions.clearAPIKey(chatID) {
		return b.sendMessageWithKeyboard(chatID, "✖️ No API key was set for this chat\\.", nil)
	}

	return b.sendMessageWithKeyboard(chatID, "✅ API key is forgotten\\.", nil)
}

func (b *Bot) handleTagsCommand(chatID int64) error {
	tags := b.tagPrompts.Tags()
	if len(tags) == 0 {
		return b.sendMessageWithKeyboard(
			chatID,
			"No tag prompts are configured\\. Every row uses the default prompt\\.",
			nil,
		)
	}

	var text strings.Builder

	fmt.Fprintf(&text, "*Tags* \\(values for the *%s* column\\):\n\n",
		markdown.EscapeV2(table.TagColumn))

	for _, tag := range tags {
		text.WriteString("– `")
		text.WriteString(markdown.EscapeCode(tag))
		text.WriteString("`\n")
	}

	text.WriteString("\nOther values fall back to the default prompt\\.")

	return b.sendMessageWithKeyboard(chatID, text.String(), nil)
}

func (b *Bot) handleCancelCommand(chatID int64) error {
	if !b.sessions.cancel(chatID) {
		return b.sendMessageWithKeyboard(chatID, "✖️ Nothing to cancel\\.", nil)
	}

	return b.sendMessageWithKeyboard(chatID, "✅ Uploaded file is dropped\\.", nil)
}
