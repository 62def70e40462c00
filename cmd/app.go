package main

import (
	"context"
	"log/slog"

	"summarygen/internal/article"
	"summarygen/internal/config"
	"summarygen/internal/pipeline"
	"summarygen/internal/summarizer"
)

func loadTagPrompts(ctx context.Context, cfg config.Config, log *slog.Logger) (summarizer.TagPrompts, error) {
	prompts, err := summarizer.LoadTagPrompts(cfg.TagPromptsPath)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "Tag prompts are loaded",
		"path", cfg.TagPromptsPath,
		"tags", len(prompts))

	return prompts, nil
}

// processorFactory binds the configured stack to one API key at a time.
func processorFactory(
	cfg config.Config,
	prompts summarizer.TagPrompts,
	log *slog.Logger,
) func(apiKey string) (*pipeline.Processor, error) {
	var titles summarizer.TitleHinter
	if cfg.FetchPageTitles {
		titles = article.NewTitleFetcher(nil, log)
	}

	return func(apiKey string) (*pipeline.Processor, error) {
		completer, err := summarizer.NewOpenAICompleter(summarizer.OpenAIConfig{
			APIKey:  apiKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, err
		}

		s := summarizer.NewTemplateSummarizer(completer, summarizer.Options{
			TagPrompts:        prompts,
			MaxRetries:        cfg.MaxRetries,
			RequestTimeout:    cfg.RequestTimeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
			TitleHinter:       titles,
		}, log)

		return pipeline.New(s, cfg.Concurrency, log), nil
	}
}
