package summarizer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"summarygen/internal/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	DefaultModel = "gpt-4o"

	baseMaxOutputTokens  int64 = 1000
	limitMaxOutputTokens int64 = 2048
	temperature                = 0.7

	systemPrompt = `You are a helpful assistant that summarizes news articles in a concise format.
Always provide complete, properly formatted summaries.`
)

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// HTTPClient replaces the SDK's default client when set.
	HTTPClient *http.Client
}

// OpenAICompleter calls OpenAI's Responses API to complete prompts.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter builds a completer bound to one API key. SDK retries
// are disabled: retrying is the summarizer's job.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, &config.CredentialError{}
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAICompleter{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *OpenAICompleter) Model() string {
	return c.model
}

// Complete sends prompt as the user input and returns the output text. A
// response cut off by the token limit is retried with a doubled limit.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	maxOutputTokens := baseMaxOutputTokens
	for {
		resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           openai.ChatModel(c.model),
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Temperature:     openai.Float(temperature),
			Instructions:    openai.String(systemPrompt),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"%w: response is incomplete (reason = %s, maxOutputTokens = %d)",
				ErrMalformedOutput,
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		text := strings.TrimSpace(resp.OutputText())
		if text == "" {
			return "", fmt.Errorf("%w (status = %s)", ErrEmptyOutput, resp.Status)
		}
		return text, nil
	}
}
