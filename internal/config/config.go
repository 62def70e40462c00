package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const APIKeyEnvVar = "OPENAI_API_KEY"

type Config struct {
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIModel       string        `env:"OPENAI_MODEL"        envDefault:"gpt-4o"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	TagPromptsPath    string        `env:"TAG_PROMPTS_PATH"    envDefault:"tag_prompts.csv"`
	Concurrency       int           `env:"CONCURRENCY"         envDefault:"1"`
	MaxRetries        int           `env:"MAX_RETRIES"         envDefault:"2"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"     envDefault:"60s"`
	RequestsPerMinute int           `env:"REQUESTS_PER_MINUTE" envDefault:"0"`
	FetchPageTitles   bool          `env:"FETCH_PAGE_TITLES"   envDefault:"false"`
	LogLevel          slog.Level    `env:"LOG_LEVEL"           envDefault:"info"`
	Token             string        `env:"TOKEN"`
	AllowedUsers      []int64       `env:"ALLOWED_USERS"`
}

// LoadDotEnv loads variables from the .env file in the working directory
// when it exists. Variables already set in the environment win.
func LoadDotEnv() (bool, error) {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load .env file: %w", err)
	}

	return true, nil
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.OpenAIAPIKey = strings.TrimSpace(cfg.OpenAIAPIKey)
	cfg.OpenAIModel = strings.TrimSpace(cfg.OpenAIModel)
	cfg.Token = strings.TrimSpace(cfg.Token)

	if cfg.OpenAIModel == "" {
		return Config{}, errors.New("OPENAI_MODEL is empty")
	}
	if cfg.Concurrency < 1 {
		return Config{}, fmt.Errorf("CONCURRENCY must be at least 1 (got %d)", cfg.Concurrency)
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("MAX_RETRIES must not be negative (got %d)", cfg.MaxRetries)
	}
	if cfg.RequestsPerMinute < 0 {
		return Config{}, fmt.Errorf("REQUESTS_PER_MINUTE must not be negative (got %d)", cfg.RequestsPerMinute)
	}

	return cfg, nil
}
