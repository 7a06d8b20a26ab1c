// Package llm generates answers from assembled prompts via langchaingo.
//
// The generator talks to any OpenAI-compatible chat completion endpoint,
// including OpenRouter and self-hosted inference servers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("llm: invalid configuration")

	// ErrRateLimited indicates the upstream model rejected the request
	// due to rate limiting.
	ErrRateLimited = errors.New("llm: rate limited by upstream model")

	// ErrUpstream indicates the upstream model failed to produce a
	// completion.
	ErrUpstream = errors.New("llm: upstream model error")
)

// Config holds configuration for the completion client.
type Config struct {
	// BaseURL is the base URL for the chat completion API.
	BaseURL string

	// Model is the completion model to use.
	Model string

	// APIKey authenticates against the completion API.
	APIKey string

	// Temperature controls sampling randomness.
	Temperature float64
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: API key required", ErrInvalidConfig)
	}
	return nil
}

// Generator produces completions for prompts.
type Generator struct {
	llm    *openai.LLM
	config Config
}

// NewGenerator creates a completion client with the given configuration.
func NewGenerator(config Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(config.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &Generator{llm: client, config: config}, nil
}

// Generate returns the model's completion for the given prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidConfig)
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(g.config.Temperature),
	)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return answer, nil
}

// isRateLimited recognizes HTTP 429 responses surfaced through the
// langchaingo client, which only exposes them as error strings.
func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit")
}
