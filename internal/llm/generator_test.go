package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	t.Run("creates generator with valid config", func(t *testing.T) {
		gen, err := NewGenerator(Config{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "meta-llama/llama-3.3-70b-instruct",
			APIKey:  "sk-test",
		})
		require.NoError(t, err)
		assert.NotNil(t, gen)
	})

	t.Run("requires base URL", func(t *testing.T) {
		_, err := NewGenerator(Config{Model: "gpt-4o-mini", APIKey: "sk-test"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("requires model", func(t *testing.T) {
		_, err := NewGenerator(Config{BaseURL: "https://api.openai.com/v1", APIKey: "sk-test"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("requires API key", func(t *testing.T) {
		_, err := NewGenerator(Config{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	gen, err := NewGenerator(Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		APIKey:  "sk-test",
	})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(errors.New("API returned unexpected status code: 429")))
	assert.True(t, isRateLimited(errors.New("openai: rate limit exceeded")))
	assert.False(t, isRateLimited(errors.New("API returned unexpected status code: 500")))
}
