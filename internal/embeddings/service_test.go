package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	t.Run("creates service with valid config", func(t *testing.T) {
		svc, err := NewService(Config{
			BaseURL: "http://localhost:8080/v1",
			Model:   "BAAI/bge-small-en-v1.5",
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("requires base URL", func(t *testing.T) {
		_, err := NewService(Config{Model: "text-embedding-3-small"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("requires model", func(t *testing.T) {
		_, err := NewService(Config{BaseURL: "https://api.openai.com/v1"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestEmbedValidation(t *testing.T) {
	svc, err := NewService(Config{
		BaseURL: "http://localhost:8080/v1",
		Model:   "BAAI/bge-small-en-v1.5",
	})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
