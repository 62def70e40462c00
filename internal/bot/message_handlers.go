package bot

import (
	"context"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const unknownText = `✖️ I only understand CSV files and commands\.

Send /help to see what I can do\.`

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	return b.withSpinner(ctx, message.Chat.ID, func() error {
		if message.Document != nil {
			return b.handleDocument(ctx, message)
		}

		command, args := commandOf(message)

		switch command {
		case "start", "help":
			return b.handleStartCommand(message.Chat.ID)
		case "key":
			return b.handleKeyCommand(ctx, args, message)
		case "forgetkey":
			return b.handleForgetKeyCommand(message.Chat.ID)
		case "tags":
			return b.handleTagsCommand(message.Chat.ID)
		case "cancel":
			return b.handleCancelCommand(message.Chat.ID)
		default:
			return b.sendMessageWithKeyboard(message.Chat.ID, unknownText, nil)
		}
	})
}

// commandOf returns the command name without the slash and the @botname
// suffix groups add, plus the trimmed arguments.
func commandOf(message *tgbotapi.Message) (string, string) {
	if message.IsCommand() {
		return message.Command(), strings.TrimSpace(message.CommandArguments())
	}

	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	head, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, args = text[:i], text[i:]
	}

	name, _, _ := strings.Cut(head[1:], "@")

	return name, strings.TrimSpace(args)
}
