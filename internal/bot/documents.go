package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"summarygen/internal/markdown"
	"summarygen/internal/table"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// Bot API refuses to serve files bigger than this.
	maxDocumentBytes = 20 << 20
	previewRows      = 5
	csvExtension     = ".csv"
)

// maxPreviewRunes leaves room for the caption in a 4096-character message.
const maxPreviewRunes = 3500

var errDocumentTooLarge = errors.New("document is too large")

func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	document := message.Document

	if !isCSVDocument(document) {
		return b.sendMessageWithKeyboard(chatID, "✖️ Please send a file with the *\\.csv* extension\\.", nil)
	}

	if document.FileSize > maxDocumentBytes {
		return b.sendMessageWithKeyboard(chatID, "✖️ The file is too large, the limit is 20 MB\\.", nil)
	}

	data, err := b.downloadDocument(ctx, document.FileID)
	if err != nil {
		return errors.Join(
			fmt.Errorf("download document: %w", err),
			b.sendMessageWithKeyboard(chatID, "❌ Failed to download the file\\.", nil),
		)
	}

	tbl, err := table.Read(bytes.NewReader(data))
	if err != nil {
		b.log.InfoContext(ctx, "Uploaded file is rejected",
			"error", err,
			"chatID", chatID,
			"fileName", document.FileName)

		return b.sendMessageWithKeyboard(chatID, "❌ "+markdown.EscapeV2(err.Error()), nil)
	}

	if _, err = tbl.Rows(); err != nil {
		b.log.InfoContext(ctx, "Uploaded file is rejected",
			"error", err,
			"chatID", chatID,
			"fileName", document.FileName)

		return b.sendMessageWithKeyboard(chatID, "❌ "+markdown.EscapeV2(err.Error()), nil)
	}

	err = b.sessions.setPending(chatID, &pendingUpload{
		table:      tbl,
		fileName:   document.FileName,
		uploadedAt: time.Now(),
	})
	if errors.Is(err, errBatchRunning) {
		return b.sendMessageWithKeyboard(chatID, "⏳ A file is being processed already, please wait\\.", nil)
	}

	return b.sendMessageWithKeyboard(chatID, previewText(tbl, document.FileName), b.processKeyboard)
}

func (b *Bot) downloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.fileURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file URL: %w", err)
	}

	return download(ctx, b.fileClient, fileURL)
}

func (b *Bot) fileURL(fileID string) (string, error) {
	if b.fileURLFunc != nil {
		return b.fileURLFunc(fileID)
	}

	return b.api.GetFileDirectURL(fileID)
}

func download(ctx context.Context, client *http.Client, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status code: %d", res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if len(data) > maxDocumentBytes {
		return nil, errDocumentTooLarge
	}

	return data, nil
}

func isCSVDocument(document *tgbotapi.Document) bool {
	if document == nil {
		return false
	}

	if strings.EqualFold(filepath.Ext(document.FileName), csvExtension) {
		return true
	}

	return strings.HasPrefix(document.MimeType, "text/csv")
}

func previewText(tbl *table.Table, fileName string) string {
	var preview bytes.Buffer
	if err := tbl.Preview(&preview, previewRows); err != nil {
		preview.Reset()
	}

	var text strings.Builder

	fmt.Fprintf(&text, "📄 *%s*: %d rows\\.\n\n", markdown.EscapeV2(fileName), tbl.Len())
	if preview.Len() > 0 {
		text.WriteString(markdown.CodeBlock("", clipPreview(strings.TrimRight(preview.String(), "\n"), maxPreviewRunes)))
		text.WriteString("\n\n")
	}
	text.WriteString("Press *Process* to summarize every row\\.")

	return text.String()
}

// clipPreview keeps whole lines of preview while they fit into limit runes
// and marks the cut with an ellipsis line. A first line longer than limit is
// cut on a rune boundary.
func clipPreview(preview string, limit int) string {
	if utf8.RuneCountInString(preview) <= limit {
		return preview
	}

	const ellipsis = "…"

	var (
		kept []string
		size int
	)

	// Room for the newline and the ellipsis line.
	budget := limit - 2

	for _, line := range strings.Split(preview, "\n") {
		n := utf8.RuneCountInString(line)
		if len(kept) > 0 {
			n++
		}
		if size+n > budget {
			break
		}

		kept = append(kept, line)
		size += n
	}

	if len(kept) == 0 {
		return string([]rune(preview)[:limit-1]) + ellipsis
	}

	return strings.Join(kept, "\n") + "\n" + ellipsis
}

// outputFileName turns "links.csv" into "links_formatted.csv".
func outputFileName(fileName string) string {
	base := strings.TrimSpace(filepath.Base(fileName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "table.csv"
	}

	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, csvExtension) {
		return base + "_formatted" + csvExtension
	}

	return strings.TrimSuffix(base, ext) + "_formatted" + ext
}
