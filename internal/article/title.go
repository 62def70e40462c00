package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	clientTimeout = 10 * time.Second
	maxPageBytes  = 2 << 20
)

// TitleFetcher reads the title of an article page. It is only used as a
// grounding hint for the model, so callers treat its errors as soft.
type TitleFetcher struct {
	client *http.Client
	log    *slog.Logger
}

func NewTitleFetcher(client *http.Client, log *slog.Logger) *TitleFetcher {
	if client == nil {
		client = &http.Client{Timeout: clientTimeout}
	}

	return &TitleFetcher{client: client, log: log}
}

func (f *TitleFetcher) PageTitle(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("URL is empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req) //nolint:gosec // URL comes from the operator's CSV
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", rawURL,
				"operation", "PageTitle")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if title := collapse(content); title != "" {
			return title, nil
		}
	}

	title := collapse(doc.Find("head > title").First().Text())
	if title == "" {
		return "", errors.New("page has no title")
	}

	return title, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
