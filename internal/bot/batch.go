package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"summarygen/internal/markdown"
	"summarygen/internal/pipeline"
	"summarygen/internal/summarizer"
	"summarygen/internal/table"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	batchTimeout         = 30 * time.Minute
	progressEditInterval = 3 * time.Second
	// Telegram counts the limit after entity parsing, so escapes are free.
	maxSummaryChunkRunes = 4000
	summarySeparator     = "\n\n"
)

func (b *Bot) runBatch(chatID int64, upload *pendingUpload, processor *pipeline.Processor) {
	ctx, cancel := context.WithTimeout(b.ctx, batchTimeout)
	defer cancel()

	total := upload.table.Len()

	progressMessage, err := b.sendMessage(chatID, progressText(0, total), nil)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to send progress message",
			"error", err,
			"chatID", chatID)
	}

	var done atomic.Int64

	stopProgress := b.trackProgress(ctx, chatID, progressMessage.MessageID, total, &done)

	result, err := processor.Run(ctx, upload.table, func(d, _ int) {
		done.Store(int64(d))
	})

	stopProgress()

	if err != nil {
		b.log.ErrorContext(ctx, "Failed to process batch",
			"error", err,
			"chatID", chatID,
			"fileName", upload.fileName,
			"rows", total)

		b.finishProgress(ctx, chatID, progressMessage.MessageID, batchErrorText(err))

		return
	}

	failed := countFailed(result.Formatted())

	b.finishProgress(ctx, chatID, progressMessage.MessageID, doneText(result.Len(), failed))

	if err = b.sendResult(ctx, chatID, upload.fileName, result, failed); err != nil {
		b.log.ErrorContext(ctx, "Failed to send batch result",
			"error", err,
			"chatID", chatID,
			"fileName", upload.fileName)
	}
}

// trackProgress edits the progress message until the returned func is called.
func (b *Bot) trackProgress(
	ctx context.Context,
	chatID int64,
	messageID int,
	total int,
	done *atomic.Int64,
) func() {
	if messageID == 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		t := time.NewTicker(progressEditInterval)
		defer t.Stop()

		shown := int64(0)

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				current := done.Load()
				if current == shown {
					continue
				}
				shown = current

				if err := b.editMessage(chatID, messageID, progressText(int(current), total)); err != nil {
					b.log.WarnContext(ctx, "Failed to edit progress message",
						"error", err,
						"chatID", chatID)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-stopped
	}
}

func (b *Bot) finishProgress(ctx context.Context, chatID int64, messageID int, text string) {
	var err error
	if messageID == 0 {
		err = b.sendMessageWithKeyboard(chatID, text, nil)
	} else {
		err = b.editMessage(chatID, messageID, text)
	}

	if err != nil {
		b.log.WarnContext(ctx, "Failed to report batch status",
			"error", err,
			"chatID", chatID)
	}
}

func (b *Bot) sendResult(
	ctx context.Context,
	chatID int64,
	fileName string,
	result *table.ResultTable,
	failed int,
) error {
	data, err := result.Bytes()
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return b.withChatAction(ctx, chatID, tgbotapi.ChatUploadDocument, func() error {
		document := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  outputFileName(fileName),
			Bytes: data,
		})
		document.Caption = fmt.Sprintf("%d rows, %d failed", result.Len(), failed)

		if _, err := b.rateLimiter.Send(document); err != nil {
			return fmt.Errorf("send document: %w", err)
		}

		var errs []error
		for _, chunk := range chunkSummaries(result.Formatted(), maxSummaryChunkRunes) {
			if err := b.sendMessageWithKeyboard(chatID, markdown.CodeBlock("markdown", chunk), nil); err != nil {
				errs = append(errs, fmt.Errorf("send summaries: %w", err))
			}
		}

		return errors.Join(errs...)
	})
}

func progressText(done, total int) string {
	return fmt.Sprintf("⏳ Processing\\.\\.\\. %d/%d rows", done, total)
}

func doneText(total, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("✅ Processed %d rows\\.", total)
	}

	return fmt.Sprintf("⚠️ Processed %d rows, %d failed\\. Failed rows are marked with *Error:* in the file\\.",
		total, failed)
}

func batchErrorText(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "❌ Processing took too long and was stopped\\."
	}
	if errors.Is(err, context.Canceled) {
		return "❌ Processing was interrupted\\."
	}

	return "❌ " + markdown.EscapeV2(err.Error())
}

func countFailed(formatted []string) int {
	failed := 0
	for _, cell := range formatted {
		if summarizer.IsErrorMarker(cell) {
			failed++
		}
	}

	return failed
}

// chunkSummaries joins summaries with blank lines into chunks of at most
// limit runes. A single summary longer than limit is split on rune
// boundaries.
func chunkSummaries(summaries []string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	sepSize := utf8.RuneCountInString(summarySeparator)

	for _, summary := range summaries {
		n := utf8.RuneCountInString(summary)

		if n > limit {
			flush()
			chunks = append(chunks, splitRunes(summary, limit)...)
			continue
		}

		if size > 0 && size+sepSize+n > limit {
			flush()
		}

		if size > 0 {
			current.WriteString(summarySeparator)
			size += sepSize
		}
		current.WriteString(summary)
		size += n
	}

	flush()

	return chunks
}

func splitRunes(text string, limit int) []string {
	var parts []string

	runes := []rune(text)
	for len(runes) > limit {
		parts = append(parts, string(runes[:limit]))
		runes = runes[limit:]
	}

	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}

	return parts
}
