package summarizer

import (
	"context"
)

// Input describes the payload for a summary request.
type Input struct {
	// Description is the article description the summary is built from.
	Description string
	// URL is echoed verbatim as the link destination of the summary.
	URL string
	// Tag optionally selects a prompt from the tag prompts file.
	Tag string
}

// Summarizer produces a single formatted summary line for a given input.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

// Completer is the language-model completion capability: one prompt in,
// one text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TitleHinter looks up the title of the page behind an article URL.
type TitleHinter interface {
	PageTitle(ctx context.Context, url string) (string, error)
}
