package summarizer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// RetryBaseDelay is the first backoff between attempts; it doubles on every
// further attempt. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const DefaultMaxRetries = 2

type Options struct {
	TagPrompts TagPrompts
	// MaxRetries is the number of extra attempts for retryable failures.
	MaxRetries int
	// RequestTimeout bounds a single attempt. Zero means no timeout.
	RequestTimeout time.Duration
	// RequestsPerMinute paces attempts across all callers. Zero disables it.
	RequestsPerMinute int
	// TitleHinter is optional.
	TitleHinter TitleHinter
}

// TemplateSummarizer builds a prompt for every input, asks the completer
// and checks the answer against the summary template.
type TemplateSummarizer struct {
	completer      Completer
	tagPrompts     TagPrompts
	maxRetries     int
	requestTimeout time.Duration
	limiter        *rate.Limiter
	titleHinter    TitleHinter
	log            *slog.Logger
}

func NewTemplateSummarizer(completer Completer, opts Options, log *slog.Logger) *TemplateSummarizer {
	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &TemplateSummarizer{
		completer:      completer,
		tagPrompts:     opts.TagPrompts,
		maxRetries:     max(opts.MaxRetries, 0),
		requestTimeout: opts.RequestTimeout,
		limiter:        limiter,
		titleHinter:    opts.TitleHinter,
		log:            log,
	}
}

// Summarize produces one formatted summary line. Every failure is returned
// as *CompletionError.
func (s *TemplateSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return "", &CompletionError{Kind: KindInvalidInput, Err: errors.New("description is empty")}
	}
	if strings.TrimSpace(input.URL) == "" {
		return "", &CompletionError{Kind: KindInvalidInput, Err: errors.New("URL is empty")}
	}

	tmpl := s.template(input.Tag)
	prompt := tmpl.Render(description, input.URL, s.pageTitle(ctx, input.URL))

	for attempt := 1; ; attempt++ {
		summary, err := s.attempt(ctx, tmpl, prompt, input.URL)
		if err == nil {
			return summary, nil
		}

		cerr := classify(err, attempt)
		if !cerr.Retryable() || attempt > s.maxRetries || ctx.Err() != nil {
			return "", cerr
		}

		backoff := RetryBaseDelay << (attempt - 1)
		s.log.WarnContext(ctx, "Summary attempt failed, retrying",
			"error", err,
			"kind", string(cerr.Kind),
			"attempt", attempt,
			"maxRetries", s.maxRetries,
			"backoff", backoff,
			"url", input.URL)

		select {
		case <-ctx.Done():
			return "", classify(ctx.Err(), attempt)
		case <-time.After(backoff):
		}
	}
}

func (s *TemplateSummarizer) attempt(
	ctx context.Context,
	tmpl Template,
	prompt string,
	url string,
) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	attemptCtx := ctx
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	output, err := s.completer.Complete(attemptCtx, prompt)
	if err != nil {
		return "", err
	}

	summary, rewritten, err := tmpl.Format(output, url)
	if err != nil {
		s.log.DebugContext(ctx, "Model output rejected",
			"error", err,
			"template", tmpl.Name,
			"output", output)

		return "", err
	}

	if rewritten {
		s.log.DebugContext(ctx, "Link destination replaced with input URL",
			"url", url,
			"template", tmpl.Name)
	}

	return summary, nil
}

func (s *TemplateSummarizer) template(tag string) Template {
	if tmpl, ok := s.tagPrompts.Template(tag); ok {
		return tmpl
	}

	return DefaultTemplate()
}

func (s *TemplateSummarizer) pageTitle(ctx context.Context, url string) string {
	if s.titleHinter == nil {
		return ""
	}

	title, err := s.titleHinter.PageTitle(ctx, url)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to fetch page title",
			"error", err,
			"url", url)

		return ""
	}

	return title
}
